// Package reconcile replays each team member's balance history and reports
// anything that does not add up to the stored balance.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/tincleo/al-sub000/internal/ledger"
	"github.com/tincleo/al-sub000/internal/models"
	"github.com/tincleo/al-sub000/internal/repository"
)

type ReconcileArgs struct {
	// MemberID limits the run to one member. Nil checks everyone.
	MemberID *uuid.UUID `json:"member_id,omitempty"`
}

func (ReconcileArgs) Kind() string { return "reconcile_balance" }

// MemberSource lists the members to check.
type MemberSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.TeamMember, error)
	List(ctx context.Context) ([]*models.TeamMember, error)
}

// HistorySource returns a member's full history, oldest first.
type HistorySource interface {
	ListAllByMemberID(ctx context.Context, memberID uuid.UUID) ([]models.BalanceHistoryEntry, error)
}

// Report is the result of one reconciliation run.
type Report struct {
	Checked       int                  `json:"checked"`
	Discrepancies []ledger.Discrepancy `json:"discrepancies"`
}

// Clean reports whether no discrepancies were found.
func (r Report) Clean() bool { return len(r.Discrepancies) == 0 }

type Reconciler struct {
	members MemberSource
	history HistorySource
	log     *slog.Logger
}

func NewReconciler(members MemberSource, history HistorySource, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{members: members, history: history, log: log}
}

// Run checks one member, or all members when memberID is nil.
func (r *Reconciler) Run(ctx context.Context, memberID *uuid.UUID) (Report, error) {
	start := time.Now()
	var members []*models.TeamMember
	if memberID != nil {
		m, err := r.members.GetByID(ctx, *memberID)
		if errors.Is(err, repository.ErrNotFound) {
			return Report{}, ledger.ErrMemberNotFound
		}
		if err != nil {
			return Report{}, fmt.Errorf("load member %s: %w", memberID, err)
		}
		members = []*models.TeamMember{m}
	} else {
		all, err := r.members.List(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("list members: %w", err)
		}
		members = all
	}

	report := Report{Discrepancies: []ledger.Discrepancy{}}
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entries, err := r.history.ListAllByMemberID(ctx, m.ID)
		if err != nil {
			return report, fmt.Errorf("load history for %s: %w", m.ID, err)
		}
		found := ledger.Verify(m.Balance(), entries)
		for _, d := range found {
			r.log.Warn("ledger discrepancy", "member_id", d.MemberID, "entry_id", d.EntryID, "kind", d.Kind, "detail", d.Detail)
		}
		report.Discrepancies = append(report.Discrepancies, found...)
		report.Checked++
	}

	if memberID == nil {
		discrepancyGauge.Set(float64(len(report.Discrepancies)))
	}
	runDuration.Observe(time.Since(start).Seconds())
	r.log.Info("ledger reconciled", "members", report.Checked, "discrepancies", len(report.Discrepancies))
	return report, nil
}

type Worker struct {
	river.WorkerDefaults[ReconcileArgs]
	rec *Reconciler
}

func NewWorker(rec *Reconciler) *Worker {
	return &Worker{rec: rec}
}

// Work runs a reconciliation. Discrepancies are reported, not retried; only
// load failures make River retry the job.
func (w *Worker) Work(ctx context.Context, job *river.Job[ReconcileArgs]) error {
	_, err := w.rec.Run(ctx, job.Args.MemberID)
	if errors.Is(err, ledger.ErrMemberNotFound) {
		return river.JobCancel(err)
	}
	return err
}

// PeriodicJob schedules a full reconciliation every interval.
func PeriodicJob(interval time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return ReconcileArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}

// InsertFunc inserts a job through a River client.
type InsertFunc func(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error

// Enqueuer requests on-demand reconciliation runs.
type Enqueuer struct {
	insert InsertFunc
}

func NewEnqueuer(insert InsertFunc) *Enqueuer {
	return &Enqueuer{insert: insert}
}

// ClientInsert adapts a River client to InsertFunc.
func ClientInsert(client *river.Client[pgx.Tx]) InsertFunc {
	return func(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error {
		_, err := client.Insert(ctx, args, opts)
		return err
	}
}

// Enqueue schedules a run for one member, or all members when memberID is nil.
// Identical requests within a minute collapse into one job.
func (e *Enqueuer) Enqueue(ctx context.Context, memberID *uuid.UUID) error {
	opts := &river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByArgs: true, ByPeriod: time.Minute},
	}
	if err := e.insert(ctx, ReconcileArgs{MemberID: memberID}, opts); err != nil {
		return fmt.Errorf("enqueue reconcile: %w", err)
	}
	return nil
}
