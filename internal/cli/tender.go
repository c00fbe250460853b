package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var tenderHeaders = []string{"ID", "REFERENCE", "TITLE", "AMOUNT", "STATUS", "STEP", "ROLE", "ACTOR", "DEADLINE"}

// NewTenderCmd создаёт группу команд для работы с тендерами.
func NewTenderCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tender",
		Short: "Manage tenders",
	}

	cmd.AddCommand(
		newTenderListCmd(clientFn, outputFn),
		newTenderCreateCmd(clientFn, outputFn),
		newTenderShowCmd(clientFn, outputFn),
		newTenderTransitionCmd("approve", "Approve the current step", (*Client).Approve, clientFn, outputFn),
		newTenderTransitionCmd("reject", "Reject the current step", (*Client).Reject, clientFn, outputFn),
		newTenderTransitionCmd("cancel", "Cancel the tender (admin only)", (*Client).Cancel, clientFn, outputFn),
		newTenderTimelineCmd(clientFn, outputFn),
	)

	return cmd
}

func newTenderListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListTendersOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenders",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenders, err := clientFn().ListTenders(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(tenders))
			for i := range tenders {
				rows[i] = tenderRow(&tenders[i])
			}

			outputFn().Print(tenderHeaders, rows, tenders)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (active, completed, cancelled)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newTenderCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateTenderRequest
	var deadline string
	var meta []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tender at the first step",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Deadline, err = parseDeadline(deadline); err != nil {
				return err
			}
			if req.Metadata, err = parseKeyValues(meta); err != nil {
				return err
			}

			tender, err := clientFn().CreateTender(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Tender created: %s (%s)", tender.Reference, tender.ID))
			out.Print(tenderHeaders, [][]string{tenderRow(tender)}, tender)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "Tender title (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Tender description")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "Estimated amount")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline of the first step (RFC3339)")
	cmd.Flags().StringSliceVar(&meta, "meta", nil, "Metadata as KEY=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newTenderShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show tender details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tender, err := clientFn().GetTender(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(tenderHeaders, [][]string{tenderRow(tender)}, tender)
			return nil
		},
	}
}

type transitionFunc func(c *Client, id string, req TransitionRequest) (*TenderResponse, error)

func newTenderTransitionCmd(use, short string, apply transitionFunc, clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req TransitionRequest
	var deadline string

	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Deadline, err = parseDeadline(deadline); err != nil {
				return err
			}

			tender, err := apply(clientFn(), args[0], req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Tender %s: %s, step %d.%d", tender.Reference, tender.Status, tender.Phase, tender.Step))
			out.Print(tenderHeaders, [][]string{tenderRow(tender)}, tender)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Comments, "comments", "", "Comments recorded in the step history")
	if use != "cancel" {
		cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline of the next step (RFC3339)")
	}

	return cmd
}

func newTenderTimelineCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline ID",
		Short: "Show the step history of a tender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := clientFn().Timeline(args[0])
			if err != nil {
				return err
			}

			headers := []string{"AT", "STEP", "TITLE", "ACTION", "ACTOR", "COMMENTS"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				title := "-"
				if e.Step != nil {
					title = e.Step.Title
				}
				rows[i] = []string{
					formatTime(&e.Entry.CreatedAt),
					e.Entry.Step.String(),
					title,
					e.Entry.Action,
					optString(e.Entry.ActorID),
					orDash(e.Entry.Comments),
				}
			}

			outputFn().Print(headers, rows, entries)
			return nil
		},
	}
}

// --- Helpers ---

func tenderRow(t *TenderResponse) []string {
	return []string{
		t.ID,
		t.Reference,
		t.Title,
		formatAmount(t.Amount),
		t.Status,
		strconv.Itoa(t.Phase) + "." + strconv.Itoa(t.Step),
		orDash(t.Role),
		optString(t.CurrentActorID),
		formatTime(t.Deadline),
	}
}

// parseDeadline разбирает RFC3339. Пустая строка — срок по умолчанию.
func parseDeadline(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid deadline %q, expected RFC3339: %w", s, err)
	}
	return &t, nil
}

// parseKeyValues разбирает пары KEY=VALUE.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid metadata format %q, expected KEY=VALUE", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}
