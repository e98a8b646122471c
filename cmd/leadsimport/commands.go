package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/spreadsheet"
)

type importOptions struct {
	file          string
	sheet         string
	createMissing bool
	createType    string
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Auto-map a spreadsheet and import it",
		Long: `Headers are matched against the leads table by label and synonym.
Unmatched headers are skipped unless --create-missing is set, in which case
each becomes a new column of --type. The result is printed as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := core.ParseSQLType(opts.createType); err != nil {
				return err
			}

			sheet, err := readSheet(opts.file, opts.sheet)
			if err != nil {
				return err
			}

			suggested, err := a.service.SuggestMapping(cmd.Context(), sheet.Headers)
			if err != nil {
				return err
			}

			req, err := core.NewImportRequest(buildInstructions(suggested, opts.createMissing, opts.createType), sheet.Rows)
			if err != nil {
				return err
			}

			ctx := core.ContextWithSource(cmd.Context(), "cli:"+filepath.Base(opts.file))
			result, err := a.service.ImportLeads(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}
			return a.printJSON(result)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Spreadsheet to import, .xlsx or .csv (required)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Worksheet name (default: first sheet)")
	cmd.Flags().BoolVar(&opts.createMissing, "create-missing", false, "Create columns for headers that match nothing")
	cmd.Flags().StringVar(&opts.createType, "type", core.DefaultCreateType.String(), "Type of created columns")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newColumnsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the leads table columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := a.service.Columns(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(cols)
		},
	}
}

type previewOutput struct {
	Sheets  []string                 `json:"sheets"`
	Sheet   string                   `json:"sheet"`
	Headers []string                 `json:"headers"`
	Rows    []map[string]any         `json:"rows"`
	Mapping []core.ColumnInstruction `json:"mapping"`
}

func newPreviewCmd(a *app) *cobra.Command {
	var file, sheetName string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the mapping an import would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := readSheet(file, sheetName)
			if err != nil {
				return err
			}

			suggested, err := a.service.SuggestMapping(cmd.Context(), sheet.Headers)
			if err != nil {
				return err
			}

			mapping := make([]core.ColumnInstruction, len(suggested))
			for i, m := range suggested {
				mapping[i] = m.Instruction()
			}
			return a.printJSON(previewOutput{
				Sheets:  sheet.Sheets,
				Sheet:   sheet.Name,
				Headers: sheet.Headers,
				Rows:    sheet.Preview(a.cfg.Import.PreviewRows).Rows,
				Mapping: mapping,
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Spreadsheet to inspect (required)")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet name (default: first sheet)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readSheet(path, sheet string) (*spreadsheet.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return spreadsheet.Parse(filepath.Base(path), f, sheet)
}

// buildInstructions turns suggestions into a columnsMap. Detected headers
// map to their column. Unmatched headers stay in auto mode, which skips
// them, or become new columns of createType when createMissing is set.
func buildInstructions(suggested []core.HeaderMapping, createMissing bool, createType string) []core.ColumnInstruction {
	out := make([]core.ColumnInstruction, 0, len(suggested))
	for _, m := range suggested {
		ci := core.ColumnInstruction{SourceHeader: m.SourceHeader}
		switch {
		case m.Mode == core.ModeUseExisting:
			ci.DBField = m.Destination
		case m.Mode == core.ModeCreateNew && createMissing:
			ci.CreateIfMissing = true
			ci.CreateType = createType
			ci.NewName = m.NewName
		}
		out = append(out, ci)
	}
	return out
}
