package models

// PastPerformance is one prior contract the company can cite.
type PastPerformance struct {
	Title       string  `json:"title"`
	Agency      string  `json:"agency"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// CompanyProfile is the singleton record describing the pursuing company.
// Qualification and the pipeline read it; edits come through the API.
type CompanyProfile struct {
	CompanyName       string            `json:"company_name"`
	NAICSCodes        []string          `json:"naics_codes"`
	Certifications    []string          `json:"certifications"`
	SetAsideTypes     []string          `json:"set_aside_types"`
	Capabilities      string            `json:"capabilities"`
	Keywords          []string          `json:"keywords"`
	MinContractValue  float64           `json:"min_contract_value"`
	MaxContractValue  float64           `json:"max_contract_value"`
	PastPerformance   []PastPerformance `json:"past_performance"`
	PreferredAgencies []string          `json:"preferred_agencies"`
}

// Empty reports whether the profile carries no usable signals at all.
func (p CompanyProfile) Empty() bool {
	return p.CompanyName == "" &&
		len(p.NAICSCodes) == 0 &&
		len(p.SetAsideTypes) == 0 &&
		len(p.Certifications) == 0 &&
		p.MinContractValue == 0 && p.MaxContractValue == 0
}
