package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/tasktimer/internal/checklist"
	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/store"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and create tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks with checklist progress",
	Args:  cobra.NoArgs,
	RunE:  runTasksList,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Create a task",
	Long: `Create a task, optionally with a checklist in bulk-add format.

Examples:
  tasktimer tasks add "Release 1.2"

  # Read the checklist from a file ("-" reads stdin)
  tasktimer tasks add "Release 1.2" --checklist release.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTasksAdd,
}

var (
	tasksListAll      bool
	tasksAddDesc      string
	tasksAddChecklist string
)

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd, tasksAddCmd)

	tasksListCmd.Flags().BoolVarP(&tasksListAll, "all", "a", false, "Include completed tasks")
	tasksAddCmd.Flags().StringVarP(&tasksAddDesc, "description", "d", "", "Task description")
	tasksAddCmd.Flags().StringVar(&tasksAddChecklist, "checklist", "", "Checklist file in bulk-add format (- for stdin)")
}

func runTasksList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	filter := store.TaskFilter{SortBy: "sort_order"}
	if !tasksListAll {
		open := model.TaskStatusOpen
		filter.Status = &open
	}
	tasks, err := s.GetTasks(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "STATUS", "DONE")
	for _, task := range tasks {
		t.Row(shortID(task.ID), task.Title, task.Status,
			fmt.Sprintf("%d/%d", task.ChecklistDoneCount, task.ChecklistCount))
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var tree []model.ChecklistSection
	if tasksAddChecklist != "" {
		text, err := readChecklist(cmd.InOrStdin(), tasksAddChecklist)
		if err != nil {
			return err
		}
		tree = checklist.ParseBulk(text, idgen.New())
		if len(tree) == 0 {
			return fmt.Errorf("checklist %s has no ### section", tasksAddChecklist)
		}
	}

	task, err := s.CreateTask(cmd.Context(), model.Task{
		Title:       strings.Join(args, " "),
		Description: tasksAddDesc,
	})
	if err != nil {
		return err
	}
	if tree != nil {
		if err := s.SaveTaskState(cmd.Context(), task.ID, model.TaskState{Checklist: tree}); err != nil {
			return err
		}
	}

	total, done := checklist.Counts(tree)
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (%d/%d)\n", shortID(task.ID), task.Title, done, total)
	return nil
}

func readChecklist(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading checklist from stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading checklist: %w", err)
	}
	return string(b), nil
}

// shortID trims a UUID to its first block for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
