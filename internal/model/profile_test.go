package model

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultInvestor_RatioInputsNonZero(t *testing.T) {
	inv := DefaultInvestor()
	assert.Equal(t, 1.0, inv.TicketSize)
	assert.Equal(t, 1.0, inv.PreferredRevenue)
	assert.Equal(t, 1.0, inv.PreferredValuation)
	assert.NotNil(t, inv.SectorInterest)
	assert.NotNil(t, inv.RevenueIncome)
}

func TestStartupDocument_OmitsEmptyOptionalFields(t *testing.T) {
	doc := StartupProfile{Sector: "Fintech", CompanyAge: 3}.Document()
	assert.Equal(t, "Fintech", doc["sector"])
	assert.Equal(t, 3, doc["companyAge"])
	assert.NotContains(t, doc, "name")
	assert.NotContains(t, doc, "email")
	assert.NotContains(t, doc, "employees")

	doc = StartupProfile{Name: "PayFast", Employees: 12}.Document()
	assert.Equal(t, "PayFast", doc["name"])
	assert.Equal(t, 12, doc["employees"])
}

func TestInvestorDocument(t *testing.T) {
	doc := InvestorProfile{Name: "Alpha VC", LogoURL: "https://cdn/logo.png"}.Document()
	assert.Equal(t, []string{}, doc["sectorInterest"])
	assert.Equal(t, []string{}, doc["revenueIncome"])
	assert.Equal(t, "https://cdn/logo.png", doc["logoURL"])
	assert.NotContains(t, doc, "website")
	assert.NotContains(t, doc, "lastClassifiedStartups")
}

func TestTaxonomies(t *testing.T) {
	assert.True(t, slices.Contains(Sectors, Agnostic))
	assert.True(t, slices.Contains(RevenueModels, Agnostic))
	assert.Len(t, States, 27)
	assert.Equal(t, "Seed", Stages[3])
}
