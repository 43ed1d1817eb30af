package ledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK           = "ok"
	outcomeNoop         = "noop"
	outcomeInvalid      = "invalid"
	outcomeInsufficient = "insufficient_balance"
	outcomeNotFound     = "not_found"
	outcomeStoreError   = "store_error"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Balance ledger operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	conflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_commit_conflicts_total",
		Help: "Compare-and-set commits that found the balance changed underneath them.",
	})
)

func observeOutcome(op, outcome string) {
	operationsTotal.WithLabelValues(op, outcome).Inc()
}

func observe(op string, err error) {
	switch {
	case IsValidation(err):
		observeOutcome(op, outcomeInvalid)
	case errors.Is(err, ErrInsufficientBalance):
		observeOutcome(op, outcomeInsufficient)
	case errors.Is(err, ErrMemberNotFound):
		observeOutcome(op, outcomeNotFound)
	default:
		observeOutcome(op, outcomeStoreError)
	}
}
