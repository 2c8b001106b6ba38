package company

// Entry maps one canonical insurer name to the spellings agents actually type.
type Entry struct {
	Canonical  string
	Variations []string
}

// Table is an ordered, versioned list of entries. Order matters: the first
// matching entry wins, so specific names must come before short generic ones.
type Table struct {
	Version string
	Entries []Entry
}

// DefaultTable lists the insurers most agents import from.
var DefaultTable = Table{
	Version: "2024.1",
	Entries: []Entry{
		{"ICICI LOMBARD GENERAL INSURANCE", []string{"ICICI LOMBARD", "ICICI LOMBARD GIC", "ICICI-LOMBARD", "ICICI LOMBARD GENERAL"}},
		{"HDFC ERGO GENERAL INSURANCE", []string{"HDFC ERGO", "HDFC-ERGO", "HDFCERGO", "HDFC ERGO GIC"}},
		{"BAJAJ ALLIANZ GENERAL INSURANCE", []string{"BAJAJ ALLIANZ", "BAJAJ GENERAL", "BAJAJ ALLIANZ GIC", "BAGIC"}},
		{"TATA AIG GENERAL INSURANCE", []string{"TATA AIG", "TATA-AIG", "TATAAIG"}},
		{"THE NEW INDIA ASSURANCE", []string{"NEW INDIA ASSURANCE", "NEW INDIA", "NIACL"}},
		{"UNITED INDIA INSURANCE", []string{"UNITED INDIA", "UIIC"}},
		{"THE ORIENTAL INSURANCE", []string{"ORIENTAL INSURANCE", "ORIENTAL", "OICL"}},
		{"NATIONAL INSURANCE", []string{"NATIONAL INSURANCE CO", "NICL"}},
		{"RELIANCE GENERAL INSURANCE", []string{"RELIANCE GENERAL", "RELIANCE GIC", "RGICL"}},
		{"GO DIGIT GENERAL INSURANCE", []string{"GO DIGIT", "DIGIT INSURANCE", "DIGIT"}},
		{"STAR HEALTH AND ALLIED INSURANCE", []string{"STAR HEALTH", "STAR HEALTH INSURANCE", "STAR ALLIED"}},
		{"CARE HEALTH INSURANCE", []string{"CARE HEALTH", "RELIGARE", "RELIGARE HEALTH"}},
		{"NIVA BUPA HEALTH INSURANCE", []string{"NIVA BUPA", "MAX BUPA", "NIVA"}},
		{"SBI GENERAL INSURANCE", []string{"SBI GENERAL", "SBI GIC"}},
		{"SBI LIFE INSURANCE", []string{"SBI LIFE"}},
		{"HDFC LIFE INSURANCE", []string{"HDFC LIFE", "HDFC STANDARD LIFE"}},
		{"ICICI PRUDENTIAL LIFE INSURANCE", []string{"ICICI PRUDENTIAL", "ICICI PRU", "IPRU"}},
		{"MAX LIFE INSURANCE", []string{"MAX LIFE", "MAX NEW YORK LIFE", "AXIS MAX LIFE"}},
		{"TATA AIA LIFE INSURANCE", []string{"TATA AIA", "TATA-AIA"}},
		{"LIFE INSURANCE CORPORATION OF INDIA", []string{"LIC", "LIC OF INDIA", "LIFE INSURANCE CORPORATION"}},
	},
}
