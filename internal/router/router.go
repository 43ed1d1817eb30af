package router

import (
	"net/http"

	"github.com/tincleo/al-sub000/internal/auth"
	"github.com/tincleo/al-sub000/internal/dashboard"
	"github.com/tincleo/al-sub000/internal/middleware"
	"github.com/tincleo/al-sub000/internal/models"
)

// New returns an http.Handler that serves the API under /api/v1. Everything
// except login requires an operator bearer token, register accepts an
// anonymous caller only for the first operator. Balance mutations are
// serialised per member and clearing or reconciling needs an admin.
func New(authHandler *auth.Handler, dash *dashboard.Handler, tokens middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.Handle("POST "+base+"/auth/register", middleware.OptionalBearerAuth(tokens)(http.HandlerFunc(authHandler.Register)))
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	authed := middleware.BearerAuth(tokens)
	admin := middleware.RequireRole(models.OperatorRoleAdmin)
	guard := middleware.NewMemberGuard()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}
	mutate := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(guard.Wrap(h)))
	}
	adminHandle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(admin(h)))
	}
	adminMutate := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(admin(guard.Wrap(h))))
	}

	handle("GET "+base+"/balance-reasons", dash.ListReasons)
	handle("GET "+base+"/team-members", dash.ListMembers)
	handle("POST "+base+"/team-members", dash.CreateMember)
	handle("GET "+base+"/team-members/{id}", dash.GetMember)
	handle("PATCH "+base+"/team-members/{id}", dash.UpdateMember)
	handle("GET "+base+"/team-members/{id}/balance-history", dash.ListHistory)
	mutate("POST "+base+"/team-members/{id}/balance-transactions", dash.ApplyTransaction)
	adminMutate("POST "+base+"/team-members/{id}/balance/clear", dash.ClearBalance)
	adminHandle("POST "+base+"/ledger/reconcile", dash.Reconcile)

	return mux
}
