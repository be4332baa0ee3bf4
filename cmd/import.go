package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/vocabulario/internal/backup"
	"github.com/example/vocabulario/internal/excel"
)

// importCmd generates and stores every word of a CSV or XLSX word list
var importCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx>",
	Short: "Import a word list, generating translations and examples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		rows, err := excel.ParseFile(args[0])
		if err != nil {
			return err
		}
		gen, err := app.generator()
		if err != nil {
			return err
		}

		importer := excel.NewImporter(gen, app.items, app.log)
		importer.BatchSize, _ = cmd.Flags().GetInt("batch")
		importer.Pause, _ = cmd.Flags().GetDuration("pause")
		importer.Progress = func(done, total int) {
			fmt.Fprintf(out, "\r%d/%d", done, total)
		}

		result, err := importer.Import(ctx, rows)
		fmt.Fprintln(out)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "words: %d, created: %d (%d items), skipped: %d, failed: %d\n",
			result.TotalProcessed, result.Created, result.Items, result.Skipped, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  %s\n", e.Error())
		}
		return nil
	},
}

// restoreCmd loads a JSON backup
var restoreCmd = &cobra.Command{
	Use:   "restore <backup.json>",
	Short: "Restore a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clearExisting, _ := cmd.Flags().GetBool("clear")

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		svc := backup.NewService(app.items, app.settings, app.cfg.Learning, app.log)
		res, err := svc.Import(cmd.Context(), f, clearExisting)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported: %d, skipped: %d\n", res.Imported, res.Skipped)
		return nil
	},
}

// exportCmd writes the collection as a JSON backup or an XLSX sheet
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the collection",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		xlsx, _ := cmd.Flags().GetBool("xlsx")
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			ext := "json"
			if xlsx {
				ext = "xlsx"
			}
			output = fmt.Sprintf("vocabulario-%s.%s", time.Now().Format("20060102-150405"), ext)
		}

		w := cmd.OutOrStdout()
		if output != "-" {
			f, createErr := os.Create(output)
			if createErr != nil {
				return createErr
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			w = f
		}

		if xlsx || strings.HasSuffix(strings.ToLower(output), ".xlsx") {
			items, listErr := app.items.ListAll(ctx)
			if listErr != nil {
				return listErr
			}
			if err := excel.ExportXLSX(w, items); err != nil {
				return err
			}
		} else {
			svc := backup.NewService(app.items, app.settings, app.cfg.Learning, app.log)
			if err := svc.Export(ctx, w); err != nil {
				return err
			}
		}
		if output != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "written to %s\n", output)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, restoreCmd, exportCmd)

	importCmd.Flags().Int("batch", excel.DefaultBatchSize, "words generated concurrently")
	importCmd.Flags().Duration("pause", excel.DefaultBatchPause, "pause between batches")

	restoreCmd.Flags().Bool("clear", false, "delete every item before restoring")

	exportCmd.Flags().Bool("xlsx", false, "write an XLSX workbook instead of JSON")
	exportCmd.Flags().StringP("output", "o", "", "output file, - for stdout")
}
