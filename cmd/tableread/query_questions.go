package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tableread/internal/memory"
)

func queryQuestionsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List the questions reviewers raised during a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryQuestions(cmd, status)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: open, answered, or irrelevant")
	return cmd
}

func runQueryQuestions(cmd *cobra.Command, status string) error {
	switch status {
	case "", "open", "answered", "irrelevant":
	default:
		return fmt.Errorf("unknown status: %s", status)
	}

	ctx := context.Background()

	db, err := openQueryStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	runID, err := resolveRun(ctx, db, cmd)
	if err != nil {
		return err
	}
	records, err := db.GetQuestions(ctx, runID, status)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "No questions found.")
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(os.Stdout, "%s [%s] (importance %.2f) %s\n", rec.QuestionID, rec.Status, rec.Importance, rec.Text)
		fmt.Fprintf(os.Stdout, "  raised by %s at scene %d\n", rec.RaisedBy, rec.RaisedScene)

		var q memory.Question
		if err := json.Unmarshal(rec.Payload, &q); err != nil {
			continue
		}
		if len(q.References) > 1 {
			fmt.Fprintf(os.Stdout, "  touched %d times, last at scene %d\n", len(q.References), q.LastReference())
		}
		if q.Answer != "" {
			fmt.Fprintf(os.Stdout, "  answered at scene %d: %s\n", q.AnsweredScene, q.Answer)
		}
		if q.IrrelevantReason != "" {
			fmt.Fprintf(os.Stdout, "  dropped at scene %d: %s\n", q.IrrelevantScene, q.IrrelevantReason)
		}
	}
	return nil
}
