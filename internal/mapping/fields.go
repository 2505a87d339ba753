package mapping

import "github.com/venture-galaxy/matchmaker/internal/normalize"

// FieldEmail is the only field every mapping must assign.
const FieldEmail = "email"

// Field describes a canonical profile field a spreadsheet column can feed.
type Field struct {
	Key      string
	Label    string
	Required bool
	Kind     normalize.Kind
	// Aliases are alternative header spellings recognised by Suggest.
	Aliases []string
}

func field(key, label string, aliases ...string) Field {
	return Field{
		Key:      key,
		Label:    label,
		Required: key == FieldEmail,
		Kind:     normalize.KindOf(key),
		Aliases:  aliases,
	}
}

// StartupFields is the catalog offered when importing founder spreadsheets.
var StartupFields = []Field{
	field(FieldEmail, "Email", "e-mail", "email do fundador", "founder email"),
	field("name", "Name", "nome", "startup", "empresa", "company"),
	field("sector", "Sector", "setor", "segmento", "industry"),
	field("valuation", "Valuation", "valor de mercado"),
	field("annualRevenue", "Annual Revenue", "receita", "receita anual", "faturamento", "revenue"),
	field("revenueModel", "Revenue Model", "modelo de receita", "modelo de negocio", "business model"),
	field("originState", "Origin State", "estado", "estado de origem", "uf", "state"),
	field("companyAge", "Company Age", "idade", "idade da empresa", "age"),
	field("stage", "Stage", "estagio", "fase", "rodada"),
	field("employees", "Employees", "funcionarios", "colaboradores", "headcount"),
}

// InvestorFields is the catalog offered when importing investor spreadsheets.
var InvestorFields = []Field{
	field(FieldEmail, "Email", "e-mail"),
	field("name", "Name", "nome", "fundo", "fund"),
	field("website", "Website", "site", "url"),
	field("logo", "Logo", "logo url", "logotipo"),
	field("aum", "AUM", "assets under management", "patrimonio"),
	field("ticketSize", "Ticket Size", "ticket", "ticket medio"),
	field("dryPowder", "Dry Powder", "capital disponivel"),
	field("sectorInterest", "Sector Interest", "setores", "setores de interesse", "sectors"),
	field("preferredStage", "Preferred Stage", "estagio preferido", "estagio", "stage"),
	field("preferredValuation", "Preferred Valuation", "valuation preferido", "valuation"),
	field("preferredRevenue", "Preferred Revenue", "receita preferida", "receita minima"),
	field("revenueIncome", "Revenue Models", "modelos de receita", "modelo de receita"),
	field("originState", "Origin State", "estado", "estado de origem", "uf"),
	field("companieAge", "Company Age", "idade da empresa", "idade"),
}

// FieldsFor returns the catalog for a collection target: "startups" or
// "investors".
func FieldsFor(target string) ([]Field, bool) {
	switch target {
	case "startups", "founders":
		return StartupFields, true
	case "investors":
		return InvestorFields, true
	default:
		return nil, false
	}
}
