// Package transformer applies the field normalizer across a unified
// posting set and derives the standardized columns.
package transformer

import (
	"time"

	"job-etl-go/internal/logger"
	"job-etl-go/internal/normalizer"
	"job-etl-go/internal/types"
)

// Transformer runs the standardization passes. It is stateless apart
// from its clock, which tests pin to get reproducible etl timestamps.
type Transformer struct {
	now      func() time.Time
	keywords []string
}

// Option customizes a Transformer.
type Option func(*Transformer)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		t.now = now
	}
}

// WithKeywords overrides the keyword vocabulary; nil keeps the built-in
// technology list.
func WithKeywords(keywords []string) Option {
	return func(t *Transformer) {
		t.keywords = keywords
	}
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// dateLayouts are the accepted raw date forms, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toISODate coerces a raw date string to an ISO calendar date, nil when
// unparsable.
func toISODate(raw string) *string {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			iso := parsed.Format("2006-01-02")
			return &iso
		}
	}
	return nil
}

// Transform normalizes every posting of the dataset and appends the
// derived columns. Derived columns are only produced when the raw
// column existed somewhere in the dataset; rows that lacked the value
// keep nil. The whole batch is stamped with a single etl timestamp
// taken at the start of the call.
//
// An empty or nil input short-circuits to nil; nothing to transform is
// not an error.
func (t *Transformer) Transform(raw *types.RawDataset) *types.StandardizedDataset {
	if raw.Len() == 0 {
		logger.Warn().Msg("empty dataset, no transformation applied")
		return nil
	}

	logger.Info().Int("count", raw.Len()).Msg("starting transformation")

	hasSalaire := raw.HasSalaire()
	hasTypeContrat := raw.HasTypeContrat()
	hasDescription := raw.HasDescription()
	if !hasDescription {
		logger.Warn().Msg("required column description missing from dataset")
	}
	etlTimestamp := t.now()

	rows := make([]types.StandardizedPosting, 0, raw.Len())
	for i := range raw.Postings {
		p := &raw.Postings[i]
		row := types.StandardizedPosting{
			ID:                p.ID,
			Intitule:          p.Intitule,
			Description:       p.Description,
			Entreprise:        p.Entreprise,
			LieuTravail:       p.LieuTravail,
			TypeContrat:       p.TypeContrat,
			Salaire:           p.Salaire,
			DateCreation:      p.DateCreation,
			DateActualisation: p.DateActualisation,

			IntituleClean:    cleanField(p.Intitule),
			DescriptionClean: cleanField(p.Description),
			EntrepriseClean:  cleanField(p.Entreprise),
			LieuTravailClean: cleanField(p.LieuTravail),
		}

		if hasSalaire {
			minSalary, maxSalary, periodicity, currency := normalizer.ParseSalary(deref(p.Salaire))
			row.MinSalary = minSalary
			row.MaxSalary = maxSalary
			row.SalaryPeriodicity = &periodicity
			row.Currency = &currency
		}

		if hasTypeContrat {
			std := types.ContractUnknown
			if p.TypeContrat != nil {
				std = normalizer.ClassifyContractType(*p.TypeContrat)
			}
			row.ContractTypeStd = &std
		}

		if hasDescription {
			level := types.ExperienceNotSpecified
			if p.Description != nil {
				level = normalizer.InferExperienceLevel(*p.Description)
			}
			row.ExperienceLevel = &level
		}

		if p.DateCreation != nil {
			row.DateCreationISO = toISODate(*p.DateCreation)
		}
		if p.DateActualisation != nil {
			row.DateActualisationISO = toISODate(*p.DateActualisation)
		}

		rows = append(rows, row)
	}

	logger.Info().Int("count", len(rows)).Msg("transformation complete")
	return &types.StandardizedDataset{Rows: rows, ETLTimestamp: etlTimestamp}
}

// ApplyKeywordAnalysis computes the keyword features of every row from
// its cleaned description. The pass is a pure function of the cleaned
// description column: skipping it or re-running it has no other effect.
// Datasets without a cleaned description pass through untouched.
func (t *Transformer) ApplyKeywordAnalysis(ds *types.StandardizedDataset) *types.StandardizedDataset {
	if ds == nil || !hasDescriptionClean(ds) {
		return ds
	}

	logger.Info().Int("count", ds.Len()).Msg("applying keyword analysis")

	for i := range ds.Rows {
		keywords := normalizer.ExtractKeywords(deref(ds.Rows[i].DescriptionClean), t.keywords)
		ds.Rows[i].Keywords = &types.KeywordFeatures{
			ExtractedKeywords:  keywords,
			HasPython:          contains(keywords, "python"),
			HasJava:            contains(keywords, "java"),
			HasJavascript:      contains(keywords, "javascript"),
			HasSQL:             contains(keywords, "sql"),
			HasAWS:             contains(keywords, "aws"),
			HasMachineLearning: contains(keywords, "machine learning"),
			KeywordCount:       len(keywords),
		}
	}

	logger.Info().Msg("keyword analysis complete")
	return ds
}

func hasDescriptionClean(ds *types.StandardizedDataset) bool {
	for i := range ds.Rows {
		if ds.Rows[i].DescriptionClean != nil {
			return true
		}
	}
	return false
}

func cleanField(raw *string) *string {
	if raw == nil {
		return nil
	}
	cleaned := normalizer.CleanText(*raw)
	return &cleaned
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
