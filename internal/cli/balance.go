package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tincleo/al-sub000/internal/balanceform"
	"github.com/tincleo/al-sub000/internal/ledger"
	"github.com/tincleo/al-sub000/internal/models"
	"github.com/tincleo/al-sub000/internal/repository"
)

func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(clearCmd)

	applyCmd.Flags().String("member", "", "Team member ID")
	applyCmd.Flags().String("amount", "", "Amount, a positive whole number (defaults to the member's salary)")
	applyCmd.Flags().String("reason", "", "Reason: "+reasonList())
	applyCmd.Flags().String("note", "", "Optional note")

	clearCmd.Flags().String("member", "", "Team member ID")
	clearCmd.Flags().BoolP("yes", "y", false, "Clear without asking for confirmation")
}

func reasonList() string {
	var labels []string
	for _, o := range balanceform.ReasonOptions() {
		labels = append(labels, fmt.Sprintf("%q", o.Label))
	}
	return strings.Join(labels, ", ")
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a balance transaction to a team member",
	Args:  cobra.NoArgs,
	RunE:  runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	id, err := memberFlag(cmd)
	if err != nil {
		return err
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
	engine := ledger.NewEngine(ledger.NewRepository(e.pool), e.cfg.Ledger.MaxConflictRetries, e.log)

	form := balanceform.New(engine, m.Balance())
	draft := form.Draft()
	if cmd.Flags().Changed("amount") {
		draft.Amount, _ = cmd.Flags().GetString("amount")
	}
	if cmd.Flags().Changed("reason") {
		draft.Reason, _ = cmd.Flags().GetString("reason")
	}
	draft.Note, _ = cmd.Flags().GetString("note")
	form.SetDraft(draft)

	return submitTransaction(ctx, cmd.OutOrStdout(), form)
}

// submitTransaction drives the form's transaction entry point and reports the
// outcome the way the dashboard would.
func submitTransaction(ctx context.Context, out io.Writer, form *balanceform.Form) error {
	view, err := form.SubmitTransaction(ctx)
	if err != nil {
		if fields := form.FieldErrors(); len(fields) > 0 {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, fields[k])
			}
		} else {
			fmt.Fprintln(out, form.Message())
		}
		return err
	}
	printView(out, view)
	return nil
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Pay out and clear a team member's balance",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	id, err := memberFlag(cmd)
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")
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
	engine := ledger.NewEngine(ledger.NewRepository(e.pool), e.cfg.Ledger.MaxConflictRetries, e.log)
	return confirmClear(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), balanceform.New(engine, m.Balance()), m.Name, yes)
}

// errAborted is returned when the operator declines the clear prompt.
var errAborted = errors.New("aborted")

func confirmClear(ctx context.Context, in io.Reader, out io.Writer, form *balanceform.Form, name string, yes bool) error {
	view := form.View()
	if !form.CanClear() {
		fmt.Fprintf(out, "%s has no balance to clear.\n", name)
		return nil
	}
	if !yes {
		fmt.Fprintf(out, "Clear balance of %d for %s? [y/N] ", view.CurrentBalance, name)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Nothing changed.")
			return errAborted
		}
	}
	view, err := form.ConfirmClear(ctx)
	if err != nil {
		fmt.Fprintln(out, form.Message())
		return err
	}
	printView(out, view)
	return nil
}

type memberGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.TeamMember, error)
}

func loadMember(ctx context.Context, repo memberGetter, id uuid.UUID) (*models.TeamMember, error) {
	m, err := repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("team member %s not found", id)
	}
	return m, err
}

func printView(out io.Writer, v balanceform.View) {
	if v.LastEntry != nil {
		fmt.Fprintf(out, "%s %+d (%s)\n", v.LastEntry.Reason, v.LastEntry.Amount, v.LastEntry.Type)
	}
	fmt.Fprintf(out, "Current balance: %d\nTotal earned:    %d\n", v.CurrentBalance, v.TotalEarned)
}
