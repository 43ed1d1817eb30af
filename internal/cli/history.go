package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tincleo/al-sub000/internal/models"
	"github.com/tincleo/al-sub000/internal/repository"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("member", "", "Team member ID")
	historyCmd.Flags().Int("limit", 20, "Number of entries to show")
	historyCmd.Flags().Int("offset", 0, "Number of newest entries to skip")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List a team member's balance history, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := memberFlag(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	if limit < 1 || offset < 0 {
		return fmt.Errorf("--limit must be positive and --offset non-negative")
	}
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	m, err := loadMember(ctx, repository.NewTeamMemberRepo(e.pool), id)
	if err != nil {
		return err
	}
	history := repository.NewBalanceHistoryRepo(e.pool)
	entries, err := history.ListByMemberID(ctx, id, limit, offset)
	if err != nil {
		return err
	}
	total, err := history.CountByMemberID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  balance %d  total earned %d  (%d entries)\n\n", m.Name, m.CurrentBalance, m.TotalEarned, total)
	return printHistory(cmd.OutOrStdout(), entries)
}

func printHistory(out io.Writer, entries []models.BalanceHistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No balance history.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tREASON\tAMOUNT\tBEFORE\tAFTER\tNOTE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%+d\t%d\t%d\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), e.Reason, e.Amount, e.PreviousBalance, e.NewBalance, e.Note)
	}
	return tw.Flush()
}
