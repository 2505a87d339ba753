package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var founderHeaders = []string{"Nome", "E-mail", "Setor", "Valuation", "Receita", "Estágio"}

func TestNew_ByHeaderAndIndex(t *testing.T) {
	m, err := New(founderHeaders, StartupFields, map[string]string{
		"email":     "E-mail",
		"name":      "0",
		"sector":    "setor",
		"stage":     "Estagio",
		"valuation": "",
	})
	require.NoError(t, err)

	col, ok := m.Column("email")
	assert.True(t, ok)
	assert.Equal(t, 1, col)

	col, ok = m.Column("name")
	assert.True(t, ok)
	assert.Equal(t, 0, col)

	h, ok := m.HeaderFor("stage")
	assert.True(t, ok)
	assert.Equal(t, "Estágio", h)

	_, ok = m.Column("valuation")
	assert.False(t, ok)

	key, ok := m.FieldFor("Setor")
	assert.True(t, ok)
	assert.Equal(t, "sector", key)

	_, ok = m.FieldFor("Receita")
	assert.False(t, ok)
}

func TestNew_MissingEmail(t *testing.T) {
	_, err := New(founderHeaders, StartupFields, map[string]string{"name": "Nome"})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"email"}, verr.Missing)
	assert.Contains(t, err.Error(), "missing required fields: email")
}

func TestNew_InvalidAssignments(t *testing.T) {
	_, err := New(founderHeaders, StartupFields, map[string]string{
		"email":     "E-mail",
		"name":      "Company",
		"sector":    "Setor",
		"stage":     "Setor",
		"favourite": "Nome",
		"valuation": "42",
	})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, verr.Missing)
	assert.Equal(t, []string{"favourite"}, verr.Unknown)
	assert.Len(t, verr.Unmatched, 2)
	assert.Len(t, verr.Conflicts, 1)
}

func TestExtract(t *testing.T) {
	m, err := New(founderHeaders, StartupFields, map[string]string{
		"email":         "E-mail",
		"sector":        "Setor",
		"annualRevenue": "Receita",
		"stage":         "Estágio",
	})
	require.NoError(t, err)

	rec := m.Extract([]string{"Acme", "a@b.co", "Fintech", "1000"})
	assert.Equal(t, "a@b.co", rec["email"])
	assert.Equal(t, "Fintech", rec["sector"])
	// Short rows produce blanks for the missing cells.
	assert.Equal(t, "", rec["annualRevenue"])
	assert.Equal(t, "", rec["stage"])
	// Unmapped fields are absent.
	_, ok := rec["name"]
	assert.False(t, ok)
}

func TestAssignments(t *testing.T) {
	m, err := New(founderHeaders, StartupFields, map[string]string{"email": "1", "name": "Nome"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "E-mail", "name": "Nome"}, m.Assignments())
	assert.Equal(t, founderHeaders, m.Headers())
}

func TestSuggest(t *testing.T) {
	headers := []string{"Nome", "E-mail", "Setor", "Valuation", "Receita", "Modelo de Receita", "Estado de Origem", "Idade da Empresa", "Estágio", "Notes"}

	got := Suggest(headers, StartupFields)
	assert.Equal(t, map[string]string{
		"email":         "E-mail",
		"name":          "Nome",
		"sector":        "Setor",
		"valuation":     "Valuation",
		"annualRevenue": "Receita",
		"revenueModel":  "Modelo de Receita",
		"originState":   "Estado de Origem",
		"companyAge":    "Idade da Empresa",
		"stage":         "Estágio",
	}, got)

	_, err := New(headers, StartupFields, got)
	assert.NoError(t, err)
}

func TestSuggest_InvestorHeaders(t *testing.T) {
	headers := []string{"name", "email", "logo", "website", "aum", "ticketSize", "dryPowder", "sectorInterest", "preferredStage", "preferredValuation", "originState"}

	got := Suggest(headers, InvestorFields)
	for _, h := range headers {
		assert.Equal(t, h, got[h], h)
	}
}

func TestFieldsFor(t *testing.T) {
	f, ok := FieldsFor("startups")
	assert.True(t, ok)
	assert.Equal(t, StartupFields, f)

	f, ok = FieldsFor("investors")
	assert.True(t, ok)
	assert.Equal(t, InvestorFields, f)

	_, ok = FieldsFor("advisors")
	assert.False(t, ok)
}

func TestLoadAndWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, WriteFile(path, "startups", map[string]string{"email": "E-mail", "sector": "2"}))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "startups", f.Target)
	assert.Equal(t, "2", f.Fields["sector"])

	m, err := New(founderHeaders, StartupFields, f.Fields)
	require.NoError(t, err)
	h, _ := m.HeaderFor("sector")
	assert.Equal(t, "Setor", h)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping: read file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fields: [oops"), 0o644))
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping: parse file")
}
