package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tincleo/al-sub000/internal/reconcile"
	"github.com/tincleo/al-sub000/internal/repository"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("member", "", "Only check this team member")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Replay balance history and report discrepancies",
	Long: `Replays every member's balance history and checks it against the stored
balance and total earned. Exits non-zero when anything does not add up.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	var memberID *uuid.UUID
	if raw, _ := cmd.Flags().GetString("member"); raw != "" {
		id, err := memberFlag(cmd)
		if err != nil {
			return err
		}
		memberID = &id
	}
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	rec := reconcile.NewReconciler(repository.NewTeamMemberRepo(e.pool), repository.NewBalanceHistoryRepo(e.pool), e.log)
	report, err := rec.Run(ctx, memberID)
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), report)
}

func printReport(out io.Writer, r reconcile.Report) error {
	fmt.Fprintf(out, "Checked %d member(s).\n", r.Checked)
	if r.Clean() {
		fmt.Fprintln(out, "Ledger is consistent.")
		return nil
	}
	for _, d := range r.Discrepancies {
		fmt.Fprintf(out, "  %s  %s\n", d.MemberID, d)
	}
	return fmt.Errorf("%d discrepancies found", len(r.Discrepancies))
}
