package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/fetcher"
	"github.com/venture-galaxy/matchmaker/internal/importer"
	"github.com/venture-galaxy/matchmaker/internal/mapping"
	"github.com/venture-galaxy/matchmaker/internal/model"
	"github.com/venture-galaxy/matchmaker/internal/normalize"
	"github.com/venture-galaxy/matchmaker/internal/sheet"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

var (
	importFile        string
	importMapping     string
	importInvestor    string
	importOutput      string
	importSaveMapping string
	importDryRun      bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import founders or investors from a spreadsheet",
	Long: `Reads an .xlsx or .csv spreadsheet (a local path or an http(s) URL), maps its columns to profile fields,
provisions one login per row and stores the normalized profile.

Columns are matched to fields by header name unless --mapping names a YAML
file of field: header (or zero-based column index) pairs. Rows without a
valid email are skipped. Provisioning is throttled by
import.provision_delay_ms and stops when the identity backend keeps failing.

Examples:
  matchmaker import startups --file lote.xlsx --investor inv-123
  matchmaker import startups --file lote.csv --investor inv-123 --mapping map.yaml
  matchmaker import investors --file fundos.xlsx --dry-run`,
}

var importStartupsCmd = &cobra.Command{
	Use:   "startups",
	Short: "Import founders and score them for an investor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runImport(cmd, importer.TargetStartups)
	},
}

var importInvestorsCmd = &cobra.Command{
	Use:   "investors",
	Short: "Import investors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runImport(cmd, importer.TargetInvestors)
	},
}

func runImport(cmd *cobra.Command, target string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	out := cmd.OutOrStdout()

	if err := cfg.Validate("import"); err != nil {
		return err
	}
	if target == importer.TargetStartups && importInvestor == "" && !importDryRun {
		return eris.New("--investor is required when importing startups")
	}

	table, err := readTable(ctx, importFile)
	if err != nil {
		return err
	}

	fields, _ := mapping.FieldsFor(target)
	assignments, err := loadAssignments(importMapping, target, table.Headers, fields)
	if err != nil {
		return err
	}

	m, err := mapping.New(table.Headers, fields, assignments)
	if err != nil {
		var verr *mapping.ValidationError
		if errors.As(err, &verr) {
			printAssignments(out, table.Headers, fields, assignments)
		}
		return eris.Wrap(err, "column mapping")
	}

	if importSaveMapping != "" {
		if err := mapping.WriteFile(importSaveMapping, target, m.Assignments()); err != nil {
			return err
		}
	}

	if importDryRun {
		printAssignments(out, table.Headers, fields, m.Assignments())
		fmt.Fprintf(out, "\n%d rows ready to import\n", len(table.Rows))
		return nil
	}

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	im := env.importer(logImportProgress)

	var res *importer.Result
	var importErr error
	switch target {
	case importer.TargetStartups:
		doc, err := store.MustGet(ctx, env.Store, model.CollectionInvestors, importInvestor)
		if err != nil {
			return eris.Wrap(err, "load acting investor")
		}
		res, importErr = im.ImportStartups(ctx, table, m, normalize.InvestorFromDocument(doc))
	default:
		res, importErr = im.ImportInvestors(ctx, table, m)
	}
	if res == nil {
		return importErr
	}

	printSummary(out, res.Summary)

	if target == importer.TargetStartups {
		path := importOutputPath(importFile, importOutput, cfg.Import.OutputDir)
		data, err := sheet.Encode(res.Table, sheet.DefaultSheetName)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		fmt.Fprintf(out, "Scored spreadsheet: %s\n", path)
	}

	return importErr
}

// readTable decodes a local .xlsx/.csv file or downloads one from an
// http(s) URL.
func readTable(ctx context.Context, source string) (*sheet.Table, error) {
	if !fetcher.IsRemote(source) {
		return sheet.DecodeFile(source)
	}
	file, err := fetcher.NewHTTP(cfg.Fetch).Download(ctx, source)
	if err != nil {
		return nil, err
	}
	return file.Table()
}

// loadAssignments reads a saved mapping file, or suggests one from the
// headers when path is empty.
func loadAssignments(path, target string, headers []string, fields []mapping.Field) (map[string]string, error) {
	if path == "" {
		return mapping.Suggest(headers, fields), nil
	}
	f, err := mapping.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if f.Target != "" && f.Target != target {
		return nil, eris.Errorf("mapping file %s is for %q, not %q", path, f.Target, target)
	}
	return f.Fields, nil
}

// importOutputPath is output when set, else <dir>/<input base>_scored.xlsx.
func importOutputPath(input, output, dir string) string {
	if output != "" {
		return output
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, base+"_scored.xlsx")
}

func printAssignments(w io.Writer, headers []string, fields []mapping.Field, assignments map[string]string) {
	fmt.Fprintf(w, "Columns: %s\n", strings.Join(headers, " | "))
	for _, f := range fields {
		col := assignments[f.Key]
		if col == "" {
			col = "-"
		}
		req := ""
		if f.Required {
			req = " (required)"
		}
		fmt.Fprintf(w, "  %-20s <- %s%s\n", f.Label, col, req)
	}
}

func printSummary(w io.Writer, s importer.Summary) {
	fmt.Fprintf(w, "Rows:                   %d\n", s.Total)
	fmt.Fprintf(w, "Imported:               %d\n", s.Imported)
	fmt.Fprintf(w, "Skipped (no email):     %d\n", s.SkippedMissingEmail)
	fmt.Fprintf(w, "Skipped (provisioning): %d\n", s.SkippedProvisioning)
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  row %d %s: %s\n", f.Row, f.Email, f.Reason)
	}
	if s.Fatal {
		fmt.Fprintf(w, "Import stopped early: %s\n", s.Reason)
	}
}

func logImportProgress(p importer.Progress) {
	zap.L().Debug("import progress",
		zap.Int("row", p.Row),
		zap.Int("total", p.Total),
		zap.String("outcome", p.Outcome),
	)
}

func init() {
	importCmd.PersistentFlags().StringVar(&importFile, "file", "", "spreadsheet to import: .xlsx or .csv path or URL")
	importCmd.PersistentFlags().StringVar(&importMapping, "mapping", "", "YAML column mapping file (default: match by header)")
	importCmd.PersistentFlags().StringVar(&importSaveMapping, "save-mapping", "", "write the confirmed mapping to this YAML file")
	importCmd.PersistentFlags().BoolVar(&importDryRun, "dry-run", false, "validate the mapping without importing")
	_ = importCmd.MarkPersistentFlagRequired("file")

	importStartupsCmd.Flags().StringVar(&importInvestor, "investor", "", "id of the investor the startups are scored for")
	importStartupsCmd.Flags().StringVar(&importOutput, "output", "", "path of the scored spreadsheet (default: <import.output_dir>/<file>_scored.xlsx)")

	importCmd.AddCommand(importStartupsCmd, importInvestorsCmd)
	rootCmd.AddCommand(importCmd)
}
