package cmd

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/example/vocabulario/pkg/models"
)

// addCmd generates a word with its examples and stores it
var addCmd = &cobra.Command{
	Use:   "add <noun|verb|adjective> <word>",
	Short: "Add a word using the content generator",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kind := models.ParseKind(args[0])
		if kind == models.KindVerbForm {
			kind = models.KindVerb
		}
		word := strings.Join(args[1:], " ")

		existing, err := app.items.FindBySource(ctx, word, kind)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.Errorf("%q already exists as %s", word, existing.ID)
		}

		gen, err := app.generator()
		if err != nil {
			return err
		}
		items, err := gen.Generate(ctx, word, kind)
		if err != nil {
			return err
		}
		if err := app.items.PutAll(ctx, items); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, item := range items {
			fmt.Fprintf(out, "%s  %-9s %s → %s\n", item.ID, item.Kind, item.SourceText, item.Expected())
		}
		return nil
	},
}

// deleteCmd removes an item, a verb together with its forms
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item; deleting a verb deletes its forms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.items.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

// replenishCmd refills the learning pool on demand
var replenishCmd = &cobra.Command{
	Use:   "replenish",
	Short: "Pull new items into learning for categories that ran dry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := app.replenisher().Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "activated %d items\n", len(ids))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd, deleteCmd, replenishCmd)
}
