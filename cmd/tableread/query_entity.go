package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tableread/internal/memory"
)

func queryEntityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entity <name>",
		Short: "Display a tracked entity and its importance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryEntity(cmd, args[0])
		},
	}
}

func runQueryEntity(cmd *cobra.Command, name string) error {
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
	records, err := db.GetEntities(ctx, runID)
	if err != nil {
		return err
	}

	want := strings.ToUpper(strings.TrimSpace(name))
	for _, rec := range records {
		if strings.ToUpper(rec.EntityID) != want && strings.ToUpper(rec.Name) != want {
			continue
		}
		var entity memory.Entity
		if err := json.Unmarshal(rec.Payload, &entity); err != nil {
			return fmt.Errorf("decoding entity: %w", err)
		}
		printEntity(entity)
		return nil
	}

	fmt.Fprintf(os.Stdout, "No entity found for %q.\n", name)
	return nil
}

func printEntity(e memory.Entity) {
	fmt.Fprintf(os.Stdout, "%s (%s, %s)\n", e.Name, e.ID, e.Type)
	fmt.Fprintf(os.Stdout, "Importance: %.2f\n", e.Importance)
	if len(e.Aliases) > 0 {
		fmt.Fprintf(os.Stdout, "Aliases: %s\n", joinValues(e.Aliases))
	}
	if e.Description != "" {
		fmt.Fprintf(os.Stdout, "Description: %s\n", e.Description)
	}
	fmt.Fprintf(os.Stdout, "Scenes %d-%d, %d appearances, %d speaking lines\n",
		e.FirstSeen, e.LastSeen, e.AppearanceCount, e.SpeakingLines)
	if len(e.MentionedWhileAbsent) > 0 {
		fmt.Fprintf(os.Stdout, "Mentioned while absent in %d scenes\n", len(e.MentionedWhileAbsent))
	}
	if e.Foreshadowed {
		fmt.Fprintln(os.Stdout, "Flagged as foreshadowed")
	}
	if len(e.Relationships) > 0 {
		fmt.Fprintln(os.Stdout, "Relationships:")
		for _, rel := range e.Relationships {
			line := fmt.Sprintf("  %s: %s", rel.Kind, rel.OtherID)
			if rel.Tension != "" {
				line += " (" + rel.Tension + ")"
			}
			fmt.Fprintln(os.Stdout, line)
		}
	}
	if len(e.KeyMoments) > 0 {
		fmt.Fprintln(os.Stdout, "Key moments:")
		for _, km := range e.KeyMoments {
			fmt.Fprintf(os.Stdout, "  scene %d [%s]: %s\n", km.SceneID, km.Significance, km.Description)
		}
	}
}
