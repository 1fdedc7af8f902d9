package types

import "time"

// ContractType is the standardized contract classification.
type ContractType = string

const (
	ContractCDI            ContractType = "CDI"
	ContractCDD            ContractType = "CDD"
	ContractInterim        ContractType = "INTERIM"
	ContractApprenticeship ContractType = "APPRENTICESHIP"
	ContractInternship     ContractType = "INTERNSHIP"
	ContractFreelance      ContractType = "FREELANCE"
	ContractPartTime       ContractType = "PART_TIME"
	ContractFullTime       ContractType = "FULL_TIME"
	ContractOther          ContractType = "OTHER"
	ContractUnknown        ContractType = "UNKNOWN"
)

// ExperienceLevel is the standardized experience classification.
type ExperienceLevel = string

const (
	ExperienceEntry        ExperienceLevel = "ENTRY"
	ExperienceMid          ExperienceLevel = "MID"
	ExperienceSenior       ExperienceLevel = "SENIOR"
	ExperienceExpert       ExperienceLevel = "EXPERT"
	ExperienceNotSpecified ExperienceLevel = "NOT_SPECIFIED"
)

// SalaryPeriodicity describes the period a salary figure refers to.
type SalaryPeriodicity = string

const (
	PeriodicityYearly      SalaryPeriodicity = "yearly"
	PeriodicityMonthly     SalaryPeriodicity = "monthly"
	PeriodicityHourly      SalaryPeriodicity = "hourly"
	PeriodicityUnspecified SalaryPeriodicity = "unspecified"
)

// RawPosting is one job advertisement exactly as collected from the
// France Travail API. Optional fields are pointers so that a field the
// source omitted stays distinguishable from an empty string; that
// distinction drives which derived columns the transformer produces.
type RawPosting struct {
	ID                string  `json:"id"`
	Intitule          *string `json:"intitule"`
	Description       *string `json:"description"`
	Entreprise        *string `json:"entreprise"`
	LieuTravail       *string `json:"lieuTravail"`
	TypeContrat       *string `json:"typeContrat"`
	Salaire           *string `json:"salaire"`
	DateCreation      *string `json:"dateCreation"`
	DateActualisation *string `json:"dateActualisation"`
}

// BatchDocument is the shape of one raw batch file: a single JSON
// document holding the postings collected by one scrape invocation.
type BatchDocument struct {
	Resultats []RawPosting `json:"resultats"`
}

// RawDataset is the deduplicated union of postings across every batch
// touched during one run. Exactly one entry per natural ID; the first
// occurrence wins.
type RawDataset struct {
	Postings []RawPosting
}

// Len returns the number of unique postings in the set.
func (d *RawDataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Postings)
}

// HasSalaire reports whether any posting carried a raw salary field.
// The transformer only derives salary columns when the column existed
// somewhere in the source data.
func (d *RawDataset) HasSalaire() bool {
	return d.anyField(func(p *RawPosting) bool { return p.Salaire != nil })
}

// HasTypeContrat reports whether any posting carried a contract field.
func (d *RawDataset) HasTypeContrat() bool {
	return d.anyField(func(p *RawPosting) bool { return p.TypeContrat != nil })
}

// HasDescription reports whether any posting carried a description.
func (d *RawDataset) HasDescription() bool {
	return d.anyField(func(p *RawPosting) bool { return p.Description != nil })
}

func (d *RawDataset) anyField(present func(*RawPosting) bool) bool {
	if d == nil {
		return false
	}
	for i := range d.Postings {
		if present(&d.Postings[i]) {
			return true
		}
	}
	return false
}

// KeywordFeatures holds the output of the keyword analysis pass for one
// posting. It is nil on postings the pass has not been applied to.
type KeywordFeatures struct {
	ExtractedKeywords  []string
	HasPython          bool
	HasJava            bool
	HasJavascript      bool
	HasSQL             bool
	HasAWS             bool
	HasMachineLearning bool
	KeywordCount       int
}

// StandardizedPosting is one posting after normalization. Derived
// fields stay nil when the corresponding raw column was absent from
// the whole dataset, so downstream consumers can tell "not derivable"
// apart from "derived as empty".
type StandardizedPosting struct {
	ID string

	Intitule          *string
	Description       *string
	Entreprise        *string
	LieuTravail       *string
	TypeContrat       *string
	Salaire           *string
	DateCreation      *string
	DateActualisation *string

	IntituleClean    *string
	DescriptionClean *string
	EntrepriseClean  *string
	LieuTravailClean *string

	MinSalary         *float64
	MaxSalary         *float64
	SalaryPeriodicity *SalaryPeriodicity
	Currency          *string

	ContractTypeStd *ContractType
	ExperienceLevel *ExperienceLevel

	DateCreationISO      *string
	DateActualisationISO *string

	Keywords *KeywordFeatures
}

// StandardizedDataset is the transformer's output: every surviving
// posting plus the single wall-clock timestamp stamped on the batch.
type StandardizedDataset struct {
	Rows         []StandardizedPosting
	ETLTimestamp time.Time
}

// Len returns the number of standardized rows.
func (d *StandardizedDataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}
