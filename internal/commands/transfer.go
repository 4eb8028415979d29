package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gastos/internal/transfer"
)

func newExportCommand(s *session) *cobra.Command {
	var dir, archive string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export active expenses and categories as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if archive != "" {
				f, err := os.Create(archive)
				if err != nil {
					return fmt.Errorf("create archive: %w", err)
				}
				if err := s.app.Transfer.ExportArchive(ctx, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close archive: %w", err)
				}
				fmt.Fprintf(out, "Wrote %s\n", archive)
				return nil
			}

			if err := s.app.Transfer.ExportDir(ctx, dir); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote documents to %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory for gastos.json and categorias.json")
	cmd.Flags().StringVar(&archive, "zip", "", "write a single zip archive instead")
	cmd.MarkFlagsMutuallyExclusive("dir", "zip")
	return cmd
}

func newImportCommand(s *session) *cobra.Command {
	var expenses, categories, archive string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import expenses and categories from JSON documents",
		Long: "Categories are merged by name; expenses are always appended, so importing\n" +
			"the same expense document twice stores it twice.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if archive == "" && expenses == "" && categories == "" {
				return fmt.Errorf("pass --zip, --expenses or --categories")
			}

			var (
				res transfer.Result
				err error
			)
			if archive != "" {
				res, err = s.app.Transfer.ImportArchiveFile(ctx, archive)
			} else {
				res, err = s.app.Transfer.ImportFiles(ctx, expenses, categories)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d expenses and %d categories\n", res.Expenses, res.Categories)
			return nil
		},
	}
	cmd.Flags().StringVar(&expenses, "expenses", "", "gastos.json document")
	cmd.Flags().StringVar(&categories, "categories", "", "categorias.json document")
	cmd.Flags().StringVar(&archive, "zip", "", "zip archive holding either document")
	cmd.MarkFlagsMutuallyExclusive("zip", "expenses")
	cmd.MarkFlagsMutuallyExclusive("zip", "categories")
	return cmd
}
