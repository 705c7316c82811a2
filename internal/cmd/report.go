package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/tasktimer/internal/ui"
)

var reportAll bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time tracked per task",
	Long: `Print the time recorded for every task, counting the current time
log and all archived sessions, most tracked first.

Examples:
  # Tasks with tracked time
  tasktimer report

  # Include tasks with no time recorded
  tasktimer report --all`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVarP(&reportAll, "all", "a", false, "Include tasks with no tracked time")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	tasks, err := s.GetTimeReport(cmd.Context())
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TASK", "STATUS", "TRACKED")

	var total int64
	rows := 0
	for _, task := range tasks {
		if task.TrackedMs == 0 && !reportAll {
			continue
		}
		total += task.TrackedMs
		rows++
		t.Row(task.Title, task.Status, ui.FormatDuration(task.TrackedMs))
	}

	out := cmd.OutOrStdout()
	if rows == 0 {
		fmt.Fprintln(out, "No time tracked yet.")
		return nil
	}
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "Total %s\n", ui.FormatDuration(total))
	return nil
}
