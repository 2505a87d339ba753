package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/importer"
	"github.com/venture-galaxy/matchmaker/internal/mapping"
	"github.com/venture-galaxy/matchmaker/internal/model"
	"github.com/venture-galaxy/matchmaker/internal/scorer"
	"github.com/venture-galaxy/matchmaker/internal/sheet"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

// setTestConfig points the global config at a fresh SQLite file.
func setTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg = &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "cli.db")},
		Scoring:  scorer.DefaultConfig(),
		Import:   config.ImportConfig{SecretLength: 12, MaxConsecutiveFailures: 5, OutputDir: dir},
		Identity: config.IdentityConfig{BcryptCost: 4},
		Artifact: config.ArtifactConfig{Backend: "local", Dir: filepath.Join(dir, "classified")},
		Funnel:   config.FunnelConfig{Concurrency: 2},
	}
	t.Cleanup(func() { cfg = nil })
	return dir
}

func resetImportFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		importFile, importMapping, importInvestor, importOutput, importSaveMapping = "", "", "", "", ""
		importDryRun = false
	})
}

func testCommand(out *bytes.Buffer) *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	c.SetOut(out)
	return c
}

func seedInvestor(t *testing.T, id string) {
	t.Helper()
	env, err := initEnv(context.Background())
	require.NoError(t, err)
	defer env.Close()
	require.NoError(t, env.Store.Put(context.Background(), model.CollectionInvestors, id, model.InvestorProfile{
		Name:               "Alpha VC",
		SectorInterest:     []string{"Fintech"},
		TicketSize:         100000,
		PreferredRevenue:   50000,
		PreferredValuation: 1000000,
		RevenueIncome:      []string{"B2C"},
		CompanieAge:        2,
	}.Document()))
}

func TestRunImport_Startups(t *testing.T) {
	dir := setTestConfig(t)
	resetImportFlags(t)
	seedInvestor(t, "inv-1")

	input := filepath.Join(dir, "lote.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"Nome,Email,Setor,Valuation,Receita,Modelo de Receita,Idade,Estágio\n"+
			"PayFast,ceo@payfast.com,Fintech,1000000,50000,B2C,2,Seed\n"+
			"NoMail,,Fintech,1,1,B2C,1,Seed\n"), 0o644))

	importFile = input
	importInvestor = "inv-1"

	var out bytes.Buffer
	require.NoError(t, runImport(testCommand(&out), importer.TargetStartups))
	assert.Contains(t, out.String(), "Imported:               1")
	assert.Contains(t, out.String(), "missing or malformed email")

	tbl, err := sheet.DecodeFile(filepath.Join(dir, "lote_scored.xlsx"))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, importer.ScoreHeader, tbl.Headers[len(tbl.Headers)-1])
	assert.Equal(t, "88.75%", tbl.Rows[0][len(tbl.Headers)-1])

	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	founders, err := st.List(context.Background(), model.CollectionFounders)
	require.NoError(t, err)
	require.Len(t, founders, 1)
	assert.Equal(t, "ceo@payfast.com", founders[0].Fields["email"])
}

func TestRunImport_RequiresInvestor(t *testing.T) {
	dir := setTestConfig(t)
	resetImportFlags(t)
	importFile = filepath.Join(dir, "x.csv")

	var out bytes.Buffer
	err := runImport(testCommand(&out), importer.TargetStartups)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--investor")
}

func TestRunImport_DryRunSavesMapping(t *testing.T) {
	dir := setTestConfig(t)
	resetImportFlags(t)

	input := filepath.Join(dir, "fundos.csv")
	require.NoError(t, os.WriteFile(input, []byte("Fundo;E-mail;Ticket\nAlpha;a@alpha.vc;100000\n"), 0o644))
	importFile = input
	importDryRun = true
	importSaveMapping = filepath.Join(dir, "map.yaml")

	var out bytes.Buffer
	require.NoError(t, runImport(testCommand(&out), importer.TargetInvestors))
	assert.Contains(t, out.String(), "1 rows ready to import")

	f, err := mapping.LoadFile(importSaveMapping)
	require.NoError(t, err)
	assert.Equal(t, importer.TargetInvestors, f.Target)
	assert.Equal(t, "E-mail", f.Fields["email"])
	assert.Equal(t, "Fundo", f.Fields["name"])
}

func TestRunImport_InvalidMapping(t *testing.T) {
	dir := setTestConfig(t)
	resetImportFlags(t)

	input := filepath.Join(dir, "fundos.csv")
	require.NoError(t, os.WriteFile(input, []byte("Fundo,Ticket\nAlpha,100000\n"), 0o644))
	importFile = input

	var out bytes.Buffer
	err := runImport(testCommand(&out), importer.TargetInvestors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, out.String(), "(required)")
}

func TestLoadAssignments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.yaml")
	require.NoError(t, mapping.WriteFile(path, "investors", map[string]string{"email": "Contato"}))

	got, err := loadAssignments(path, "investors", nil, mapping.InvestorFields)
	require.NoError(t, err)
	assert.Equal(t, "Contato", got["email"])

	_, err = loadAssignments(path, "startups", nil, mapping.StartupFields)
	assert.Error(t, err)

	got, err = loadAssignments("", "startups", []string{"Email"}, mapping.StartupFields)
	require.NoError(t, err)
	assert.Equal(t, "Email", got["email"])
}

func TestImportOutputPath(t *testing.T) {
	assert.Equal(t, "out.xlsx", importOutputPath("in/lote.xlsx", "out.xlsx", "x"))
	assert.Equal(t, filepath.Join("results", "lote_scored.xlsx"), importOutputPath("in/lote.xlsx", "", "results"))
	assert.Equal(t, "lote_scored.xlsx", importOutputPath("lote.csv", "", ""))
}

func TestPrintSummary_Fatal(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, importer.Summary{Total: 3, Imported: 1, Fatal: true, Reason: "circuit open"})
	assert.Contains(t, buf.String(), "Import stopped early: circuit open")
}
