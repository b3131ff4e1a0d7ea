package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/bimmerbailey/templar/internal/escalate"
	"github.com/bimmerbailey/templar/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and resolve escalated tasks",
	Long: `Work the escalation queue. Lines the pipeline could not handle on its own
(collaborator failures, unresolved template conflicts) end up here for
manual follow-up.

Examples:
  templar tasks list
  templar tasks list --pending
  templar tasks resolve <task-id> --note "added pattern by hand"`,
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalated tasks",
	RunE:  runTasksList,
}

var tasksResolveCmd = &cobra.Command{
	Use:   "resolve <task-id>",
	Short: "Mark a task resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksResolve,
}

func init() {
	tasksListCmd.Flags().Bool("pending", false, "show only pending tasks")
	tasksResolveCmd.Flags().String("note", "", "resolution note appended to the task history")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksResolveCmd)
	rootCmd.AddCommand(tasksCmd)
}

func openQueue() (*escalate.Queue, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return escalate.NewQueue(filepath.Join(cfg.StateDir, "escalations.json"))
}

func runTasksList(cmd *cobra.Command, args []string) error {
	pendingOnly, _ := cmd.Flags().GetBool("pending")

	queue, err := openQueue()
	if err != nil {
		return err
	}

	tasks := queue.Tasks()
	if pendingOnly {
		var pending []escalate.Task
		for _, t := range tasks {
			if t.Status == escalate.StatusPending {
				pending = append(pending, t)
			}
		}
		tasks = pending
	}

	writer := output.New(cmd.OutOrStdout(), output.ParseFormat(viper.GetString("format")))
	return writer.WriteTasks(tasks)
}

func runTasksResolve(cmd *cobra.Command, args []string) error {
	note, _ := cmd.Flags().GetString("note")

	queue, err := openQueue()
	if err != nil {
		return err
	}

	if !queue.Resolve(args[0], note) {
		return fmt.Errorf("no task with id %s", args[0])
	}
	if err := queue.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "resolved %s\n", args[0])
	return nil
}
