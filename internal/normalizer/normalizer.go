// Package normalizer contains the pure field-standardization functions
// of the ETL pipeline: text cleanup, salary extraction, contract-type
// classification, experience-level inference and keyword detection.
//
// None of these functions perform I/O and none of them return errors:
// a malformed input degrades to nil / a default / an empty result, so
// a run over thousands of heterogeneous postings never aborts on one
// bad record.
package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"job-etl-go/internal/types"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<.*?>`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	// Digit groups optionally separated by spaces, followed by a currency
	// marker or "euro(s)". A range connector ("30000 et 45000 euros",
	// "30000-45000 €") lets two amounts share one trailing marker.
	salaryAmountPattern = regexp.MustCompile(`(\d+[\s\d]*[\d,.]*)(?:(?:et|à|a|-|/)\s*(\d+[\s\d]*[\d,.]*))?(?:[€$£]|euros?)`)

	nonNumericPattern = regexp.MustCompile(`[^\d.]`)
)

// CleanText strips HTML-like tags, collapses whitespace runs to single
// spaces and trims the result. The empty input stays empty.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	text := htmlTagPattern.ReplaceAllString(raw, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ParseSalary scans a free-text salary mention for currency amounts,
// periodicity markers and a currency symbol.
//
// Token order in the text is trusted: with two or more amounts the
// first is the minimum and the second the maximum; a single amount
// sets both bounds. Amounts that fail numeric parsing are dropped from
// consideration, never treated as a failure of the whole record.
func ParseSalary(text string) (minSalary, maxSalary *float64, periodicity types.SalaryPeriodicity, currency string) {
	currency = "EUR"
	if text == "" {
		return nil, nil, types.PeriodicityUnspecified, currency
	}

	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "annuel") || strings.Contains(lower, "par an"):
		periodicity = types.PeriodicityYearly
	case strings.Contains(lower, "mensuel") || strings.Contains(lower, "par mois"):
		periodicity = types.PeriodicityMonthly
	case strings.Contains(lower, "horaire") || strings.Contains(lower, "de l'heure"):
		periodicity = types.PeriodicityHourly
	default:
		periodicity = types.PeriodicityMonthly
	}

	if strings.Contains(text, "£") {
		currency = "GBP"
	} else if strings.Contains(text, "$") {
		currency = "USD"
	}

	var amounts []float64
	for _, match := range salaryAmountPattern.FindAllStringSubmatch(lower, -1) {
		for _, token := range match[1:] {
			if token == "" {
				continue
			}
			if v, ok := parseAmount(token); ok {
				amounts = append(amounts, v)
			}
			if len(amounts) == 2 {
				break
			}
		}
		if len(amounts) == 2 {
			break
		}
	}

	switch len(amounts) {
	case 0:
	case 1:
		minSalary = &amounts[0]
		maxSalary = &amounts[0]
	default:
		minSalary = &amounts[0]
		maxSalary = &amounts[1]
	}
	return minSalary, maxSalary, periodicity, currency
}

// parseAmount normalizes one captured amount token ("30 000", "2.500,5")
// to a float. Decimal commas become points before every remaining
// non-numeric character is removed.
func parseAmount(token string) (float64, bool) {
	cleaned := strings.ReplaceAll(token, ",", ".")
	cleaned = nonNumericPattern.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// contractMarkers is the fixed priority list for contract classification.
// First match wins, so "CDI temps plein" classifies as CDI.
var contractMarkers = []struct {
	markers []string
	std     types.ContractType
}{
	{[]string{"cdi"}, types.ContractCDI},
	{[]string{"cdd"}, types.ContractCDD},
	{[]string{"intérim", "interim"}, types.ContractInterim},
	{[]string{"apprentissage"}, types.ContractApprenticeship},
	{[]string{"stage"}, types.ContractInternship},
	{[]string{"freelance", "indépendant"}, types.ContractFreelance},
	{[]string{"temps partiel"}, types.ContractPartTime},
	{[]string{"temps plein"}, types.ContractFullTime},
}

// ClassifyContractType maps a free-text contract mention onto the
// closed contract-type nomenclature. Text that matches no marker
// classifies as OTHER; a missing raw field is the caller's concern and
// maps to UNKNOWN at the transformer level.
func ClassifyContractType(text string) types.ContractType {
	lower := strings.ToLower(text)
	for _, entry := range contractMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(lower, marker) {
				return entry.std
			}
		}
	}
	return types.ContractOther
}

// experienceBuckets is evaluated in priority order; the first bucket
// with a matching term wins.
var experienceBuckets = []struct {
	terms []string
	level types.ExperienceLevel
}{
	{[]string{"débutant", "junior", "0-2 ans", "0 à 2 ans"}, types.ExperienceEntry},
	{[]string{"confirmé", "2-5 ans", "2 à 5 ans", "3 ans"}, types.ExperienceMid},
	{[]string{"senior", "5-10 ans", "5 à 10 ans", "expérimenté"}, types.ExperienceSenior},
	{[]string{"expert", "+ de 10 ans", "plus de 10 ans"}, types.ExperienceExpert},
}

// InferExperienceLevel derives the experience level from a posting
// description. Descriptions matching no bucket yield NOT_SPECIFIED.
func InferExperienceLevel(description string) types.ExperienceLevel {
	lower := strings.ToLower(description)
	for _, bucket := range experienceBuckets {
		for _, term := range bucket.terms {
			if strings.Contains(lower, term) {
				return bucket.level
			}
		}
	}
	return types.ExperienceNotSpecified
}

// DefaultKeywords is the fixed technology vocabulary searched in
// posting descriptions. Entries are regex fragments, so symbols with a
// meaning in patterns (c++, c#) appear escaped.
var DefaultKeywords = []string{
	// Programming languages
	"python", "java", "javascript", `c\+\+`, "c#", "php", "ruby", "swift",
	// Frameworks
	"django", "flask", "spring", "react", "angular", "vue", "laravel",
	// Databases
	"sql", "postgresql", "mysql", "mongodb", "oracle", "sqlite",
	// Cloud
	"aws", "azure", "gcp", "cloud",
	// Data / AI
	"data science", "machine learning", "deep learning", "ai", "big data",
	// DevOps
	"devops", "docker", "kubernetes", "jenkins", "git", "ci/cd",
}

// MainTechnologies are the keywords promoted to boolean columns on the
// persisted schema.
var MainTechnologies = []string{"python", "java", "javascript", "sql", "aws", "machine learning"}

var defaultKeywordPatterns = compileKeywordPatterns(DefaultKeywords)

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

func compileKeywordPatterns(keywords []string) []keywordPattern {
	patterns := make([]keywordPattern, 0, len(keywords))
	for _, kw := range keywords {
		re, err := regexp.Compile(`\b` + kw + `\b`)
		if err != nil {
			// An uncompilable vocabulary entry is skipped, not fatal.
			continue
		}
		patterns = append(patterns, keywordPattern{keyword: kw, re: re})
	}
	return patterns
}

// ExtractKeywords returns the vocabulary terms present in a description
// as case-insensitive whole-word matches. The result preserves
// vocabulary order, not occurrence order. A nil keyword list selects
// DefaultKeywords.
func ExtractKeywords(description string, keywords []string) []string {
	if description == "" {
		return []string{}
	}

	patterns := defaultKeywordPatterns
	if keywords != nil {
		patterns = compileKeywordPatterns(keywords)
	}

	lower := strings.ToLower(description)
	found := []string{}
	for _, p := range patterns {
		if p.re.MatchString(lower) {
			found = append(found, p.keyword)
		}
	}
	return found
}
