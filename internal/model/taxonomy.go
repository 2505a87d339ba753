package model

// Sectors is the sector taxonomy offered on profile forms.
var Sectors = []string{
	Agnostic, "Adtech", "Agtech", "Biotech", "Cannabis", "Cibersecurity", "Cleantech",
	"Construtech", "Datatech", "Deeptech", "Ecommerce", "Edtech", "Energytech", "ESG",
	"Femtech", "Fintech", "Foodtech", "Games", "Govtech", "Healthtech", "HRtech", "Indtech",
	"Insurtech", "Legaltech", "Logtech", "MarketPlaces", "Martech", "Nanotech", "Proptech",
	"Regtech", "Retailtech", "Socialtech", "Software", "Sporttech", "Web3", "Space",
}

// Stages is the funding-stage taxonomy, earliest first.
var Stages = []string{
	"Aceleração",
	"Anjo",
	"Pre-Seed",
	"Seed",
	"Série A",
	"Série B",
	"Série C",
	"Pre-IPO",
}

// RevenueModels lists the business-model categories used in revenue
// preferences.
var RevenueModels = []string{
	Agnostic, "B2B", "B2C", "B2B2C", "B2G", "C2C", "D2C", "SaaS", "Marketplace",
}

// States lists the Brazilian federative unit codes used for origin state.
var States = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS", "MG", "PA",
	"PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}
