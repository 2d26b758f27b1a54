package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/workers"
)

var errAuditFailed = errors.New("streak audit found violations")

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	violationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	driftStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func auditCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check every habit's streaks against its checkoff log",
		Long: `Audit every habit in every scope. A habit fails when it has more than
one active streak, an inactive habit keeps an active streak, or a streak's
end does not match its state. A stored length that differs from a replay
of the checkoffs is reported as drift.

Exits non-zero when any violation is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, log, err := flags.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			defer log.Sync()

			reports, err := workers.NewStreakAuditor(store, log).AuditAll(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				err = writeReportsJSON(cmd.OutOrStdout(), reports)
			} else {
				err = writeReportsTable(cmd.OutOrStdout(), reports)
			}
			if err != nil {
				return err
			}

			for _, r := range reports {
				if !r.Healthy() {
					return errAuditFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")

	return cmd
}

func writeReportsJSON(w io.Writer, reports []workers.AuditReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func reportStatus(r workers.AuditReport) string {
	switch {
	case !r.Healthy():
		return violationStyle.Render("violation")
	case r.Drifted():
		return driftStyle.Render("drift")
	default:
		return "ok"
	}
}

func writeReportsTable(w io.Writer, reports []workers.AuditReport) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "no habits to audit")
		return err
	}

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.HabitID,
			r.Task,
			strconv.Itoa(r.ActiveStreaks),
			strconv.Itoa(r.StoredLength),
			strconv.Itoa(r.ReplayedLength),
			reportStatus(r),
			strings.Join(r.Violations, "; "),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("HABIT", "TASK", "ACTIVE", "STORED", "REPLAYED", "STATUS", "DETAILS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
