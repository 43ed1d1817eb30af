package middleware

import (
	"net/http"
	"sync"
)

// MemberGuard allows at most one mutating request per team member to be in
// flight in this process. The member is taken from the {id} path value; a
// second request for the same member gets 409 until the first returns.
type MemberGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemberGuard() *MemberGuard {
	return &MemberGuard{inFlight: make(map[string]struct{})}
}

func (g *MemberGuard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[id]; busy {
		return false
	}
	g.inFlight[id] = struct{}{}
	return true
}

func (g *MemberGuard) release(id string) {
	g.mu.Lock()
	delete(g.inFlight, id)
	g.mu.Unlock()
}

// Wrap guards next. Requests without an {id} path value pass through.
func (g *MemberGuard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !g.acquire(id) {
			http.Error(w, `{"error":"another balance operation is in progress","retryable":true}`, http.StatusConflict)
			return
		}
		defer g.release(id)
		next.ServeHTTP(w, r)
	})
}
