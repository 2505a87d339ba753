package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/venture-galaxy/matchmaker/internal/model"
)

// StartupFromRecord builds a fully-defaulted startup profile from raw cells.
func StartupFromRecord(rec Record) model.StartupProfile {
	s := model.DefaultStartup()
	s.Name = Normalize("name", rec["name"]).Text
	s.Email = strings.ToLower(Normalize("email", rec["email"]).Text)
	s.Sector = Normalize("sector", rec["sector"]).Text
	s.Valuation = Normalize("valuation", rec["valuation"]).Float
	s.AnnualRevenue = Normalize("annualRevenue", rec["annualRevenue"]).Float
	s.RevenueModel = Normalize("revenueModel", rec["revenueModel"]).Text
	s.OriginState = Normalize("originState", rec["originState"]).Text
	s.CompanyAge = Normalize("companyAge", rec["companyAge"]).Int
	s.Stage = Normalize("stage", rec["stage"]).Text
	s.Employees = Normalize("employees", rec["employees"]).Int
	return s
}

// InvestorFromRecord builds a fully-defaulted investor profile from raw cells.
func InvestorFromRecord(rec Record) model.InvestorProfile {
	i := model.DefaultInvestor()
	i.Name = Normalize("name", rec["name"]).Text
	i.Email = strings.ToLower(Normalize("email", rec["email"]).Text)
	i.Website = Normalize("website", rec["website"]).Text
	i.LogoURL = Normalize("logo", rec["logo"]).Text
	i.AUM = Normalize("aum", rec["aum"]).Float
	i.DryPowder = Normalize("dryPowder", rec["dryPowder"]).Float
	i.SectorInterest = Normalize("sectorInterest", rec["sectorInterest"]).List
	i.TicketSize = Normalize("ticketSize", rec["ticketSize"]).Float
	i.PreferredRevenue = Normalize("preferredRevenue", rec["preferredRevenue"]).Float
	i.PreferredValuation = Normalize("preferredValuation", rec["preferredValuation"]).Float
	i.RevenueIncome = Normalize("revenueIncome", rec["revenueIncome"]).List
	i.OriginState = Normalize("originState", rec["originState"]).Text
	i.CompanieAge = Normalize("companieAge", rec["companieAge"]).Int
	i.PreferredStage = Normalize("preferredStage", rec["preferredStage"]).Text
	return i
}

// StartupFromDocument builds a startup profile from a stored document.
func StartupFromDocument(doc map[string]any) model.StartupProfile {
	return StartupFromRecord(DocumentRecord(doc))
}

// InvestorFromDocument builds an investor profile from a stored document.
// Documents written by older clients carry the logo under logoURL.
func InvestorFromDocument(doc map[string]any) model.InvestorProfile {
	rec := DocumentRecord(doc)
	if rec["logo"] == "" {
		rec["logo"] = rec["logoURL"]
	}
	inv := InvestorFromRecord(rec)
	inv.LastClassified = artifactFromDocument(doc["lastClassifiedStartups"])
	return inv
}

// DocumentRecord flattens a loosely-typed document into raw cell strings so
// the same coercion rules apply to stored and imported data.
func DocumentRecord(doc map[string]any) Record {
	rec := make(Record, len(doc))
	for k, v := range doc {
		rec[k] = stringify(v)
	}
	return rec
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func artifactFromDocument(v any) *model.ArtifactRef {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	url := stringify(m["url"])
	if url == "" {
		return nil
	}
	ref := &model.ArtifactRef{URL: url}
	switch ts := m["timestamp"].(type) {
	case time.Time:
		ref.Timestamp = ts
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ref.Timestamp = parsed
		}
	}
	return ref
}
