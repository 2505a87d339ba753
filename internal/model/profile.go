// Package model defines the startup and investor profile documents shared by
// the scoring engine, the import pipeline and the stores.
package model

import "time"

// Agnostic is the preference sentinel that matches any value.
const Agnostic = "Agnostic"

// Document collections.
const (
	CollectionFounders  = "founders"
	CollectionInvestors = "investors"
)

// Roles written on imported profile documents.
const (
	RoleFounder  = "founder"
	RoleInvestor = "investor"
)

// StartupProfile is the subject being scored. Numeric fields are always
// populated; absent spreadsheet or document values resolve to the neutral
// defaults returned by DefaultStartup.
type StartupProfile struct {
	Name          string  `json:"name,omitempty"`
	Email         string  `json:"email,omitempty"`
	Sector        string  `json:"sector"`
	Valuation     float64 `json:"valuation"`
	AnnualRevenue float64 `json:"annualRevenue"`
	RevenueModel  string  `json:"revenueModel"`
	OriginState   string  `json:"originState"`
	CompanyAge    int     `json:"companyAge"`
	Stage         string  `json:"stage"`
	Employees     int     `json:"employees,omitempty"`
}

// InvestorProfile is the scorer's preference set.
type InvestorProfile struct {
	Name               string       `json:"name,omitempty"`
	Email              string       `json:"email,omitempty"`
	Website            string       `json:"website,omitempty"`
	LogoURL            string       `json:"logoURL,omitempty"`
	AUM                float64      `json:"aum,omitempty"`
	DryPowder          float64      `json:"dryPowder,omitempty"`
	SectorInterest     []string     `json:"sectorInterest"`
	TicketSize         float64      `json:"ticketSize"`
	PreferredRevenue   float64      `json:"preferredRevenue"`
	PreferredValuation float64      `json:"preferredValuation"`
	RevenueIncome      []string     `json:"revenueIncome"`
	OriginState        string       `json:"originState"`
	CompanieAge        int          `json:"companieAge"`
	PreferredStage     string       `json:"preferredStage"`
	LastClassified     *ArtifactRef `json:"lastClassifiedStartups,omitempty"`
}

// ArtifactRef points at an uploaded classified spreadsheet.
type ArtifactRef struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultStartup returns a startup with every field at its neutral value.
func DefaultStartup() StartupProfile {
	return StartupProfile{}
}

// DefaultInvestor returns an investor with every field at its neutral value.
// Ratio inputs default to 1 so they never act as a zero denominator.
func DefaultInvestor() InvestorProfile {
	return InvestorProfile{
		SectorInterest:     []string{},
		TicketSize:         1,
		PreferredRevenue:   1,
		PreferredValuation: 1,
		RevenueIncome:      []string{},
	}
}

// Document converts the startup into the field map persisted in the
// founders collection.
func (s StartupProfile) Document() map[string]any {
	doc := map[string]any{
		"sector":        s.Sector,
		"valuation":     s.Valuation,
		"annualRevenue": s.AnnualRevenue,
		"revenueModel":  s.RevenueModel,
		"originState":   s.OriginState,
		"companyAge":    s.CompanyAge,
		"stage":         s.Stage,
	}
	if s.Name != "" {
		doc["name"] = s.Name
	}
	if s.Email != "" {
		doc["email"] = s.Email
	}
	if s.Employees != 0 {
		doc["employees"] = s.Employees
	}
	return doc
}

// Document converts the investor into the field map persisted in the
// investors collection.
func (i InvestorProfile) Document() map[string]any {
	doc := map[string]any{
		"sectorInterest":     nonNil(i.SectorInterest),
		"ticketSize":         i.TicketSize,
		"preferredRevenue":   i.PreferredRevenue,
		"preferredValuation": i.PreferredValuation,
		"revenueIncome":      nonNil(i.RevenueIncome),
		"originState":        i.OriginState,
		"companieAge":        i.CompanieAge,
		"preferredStage":     i.PreferredStage,
		"aum":                i.AUM,
		"dryPowder":          i.DryPowder,
	}
	if i.Name != "" {
		doc["name"] = i.Name
	}
	if i.Email != "" {
		doc["email"] = i.Email
	}
	if i.Website != "" {
		doc["website"] = i.Website
	}
	if i.LogoURL != "" {
		doc["logoURL"] = i.LogoURL
	}
	return doc
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
