package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// NewTasksCmd создаёт команду просмотра очереди задач.
//
// Без флагов показывает очередь актора из --as.
func NewTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actorID string
	var role string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Show tenders waiting for a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actorID != "" && role != "" {
				return errors.New("--actor and --role are mutually exclusive")
			}

			client := clientFn()
			var (
				tasks []TaskResponse
				err   error
			)
			switch {
			case actorID != "":
				tasks, err = client.Tasks(actorID)
			case role != "":
				tasks, err = client.Tasks(role)
			default:
				tasks, err = client.MyTasks()
			}
			if err != nil {
				return err
			}

			headers := []string{"TENDER", "REFERENCE", "TITLE", "STEP", "STEP_TITLE", "ROLE", "DEADLINE", "OVERDUE"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				overdue := ""
				if t.Overdue {
					overdue = "yes"
				}
				rows[i] = []string{
					t.TenderID,
					t.Reference,
					t.Title,
					t.Position.String(),
					orDash(t.StepTitle),
					orDash(t.Role),
					formatTime(t.Deadline),
					orDash(overdue),
				}
			}

			outputFn().Print(headers, rows, tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "Show the queue of this user ID")
	cmd.Flags().StringVar(&role, "role", "", "Show the queue of this role")

	return cmd
}
