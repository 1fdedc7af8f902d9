package transformer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-etl-go/internal/types"
)

func strPtr(s string) *string { return &s }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTransformEmptyDataset(t *testing.T) {
	tr := New()
	assert.Nil(t, tr.Transform(nil))
	assert.Nil(t, tr.Transform(&types.RawDataset{}))
}

func TestTransformCleansAndDerives(t *testing.T) {
	stamp := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	tr := New(WithClock(fixedClock(stamp)))

	raw := &types.RawDataset{Postings: []types.RawPosting{{
		ID:                "ABC123",
		Intitule:          strPtr("<h1>Développeur   Python</h1>"),
		Description:       strPtr("<p>Profil débutant bienvenu, stack python et aws.</p>"),
		Entreprise:        strPtr("ACME  Conseil"),
		TypeContrat:       strPtr("CDI temps plein"),
		Salaire:           strPtr("Entre 30000 et 45000 euros par an"),
		DateCreation:      strPtr("2025-01-10T08:15:00Z"),
		DateActualisation: strPtr("pas une date"),
	}}}

	ds := tr.Transform(raw)
	require.NotNil(t, ds)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, stamp, ds.ETLTimestamp)

	row := ds.Rows[0]
	assert.Equal(t, "ABC123", row.ID)
	require.NotNil(t, row.IntituleClean)
	assert.Equal(t, "Développeur Python", *row.IntituleClean)
	require.NotNil(t, row.EntrepriseClean)
	assert.Equal(t, "ACME Conseil", *row.EntrepriseClean)

	require.NotNil(t, row.MinSalary)
	require.NotNil(t, row.MaxSalary)
	assert.Equal(t, 30000.0, *row.MinSalary)
	assert.Equal(t, 45000.0, *row.MaxSalary)
	require.NotNil(t, row.SalaryPeriodicity)
	assert.Equal(t, types.PeriodicityYearly, *row.SalaryPeriodicity)
	require.NotNil(t, row.Currency)
	assert.Equal(t, "EUR", *row.Currency)

	require.NotNil(t, row.ContractTypeStd)
	assert.Equal(t, types.ContractCDI, *row.ContractTypeStd)
	require.NotNil(t, row.ExperienceLevel)
	assert.Equal(t, types.ExperienceEntry, *row.ExperienceLevel)

	require.NotNil(t, row.DateCreationISO)
	assert.Equal(t, "2025-01-10", *row.DateCreationISO)
	assert.Nil(t, row.DateActualisationISO, "unparsable dates degrade to nil")
}

func TestTransformDerivedColumnsFollowRawColumns(t *testing.T) {
	// No posting carries a contract or salary field, so the derived
	// columns must stay absent on every row.
	tr := New()
	raw := &types.RawDataset{Postings: []types.RawPosting{
		{ID: "A", Description: strPtr("Développeur senior")},
		{ID: "B", Description: strPtr("Data engineer")},
	}}

	ds := tr.Transform(raw)
	require.NotNil(t, ds)
	for _, row := range ds.Rows {
		assert.Nil(t, row.ContractTypeStd)
		assert.Nil(t, row.MinSalary)
		assert.Nil(t, row.SalaryPeriodicity)
		assert.Nil(t, row.Currency)
		require.NotNil(t, row.ExperienceLevel)
	}
}

func TestTransformRowMissingValueInPresentColumn(t *testing.T) {
	// The contract column exists in the dataset but not on every row:
	// rows without a value classify as UNKNOWN, not OTHER.
	tr := New()
	raw := &types.RawDataset{Postings: []types.RawPosting{
		{ID: "A", TypeContrat: strPtr("CDD saisonnier"), Description: strPtr("x")},
		{ID: "B", Description: strPtr("y")},
	}}

	ds := tr.Transform(raw)
	require.NotNil(t, ds)
	require.NotNil(t, ds.Rows[0].ContractTypeStd)
	assert.Equal(t, types.ContractCDD, *ds.Rows[0].ContractTypeStd)
	require.NotNil(t, ds.Rows[1].ContractTypeStd)
	assert.Equal(t, types.ContractUnknown, *ds.Rows[1].ContractTypeStd)
}

func TestTransformSingleTimestampAcrossBatch(t *testing.T) {
	calls := 0
	tr := New(WithClock(func() time.Time {
		calls++
		return time.Date(2025, 1, 15, 0, 0, calls, 0, time.UTC)
	}))

	raw := &types.RawDataset{Postings: []types.RawPosting{
		{ID: "A", Description: strPtr("a")},
		{ID: "B", Description: strPtr("b")},
		{ID: "C", Description: strPtr("c")},
	}}

	ds := tr.Transform(raw)
	require.NotNil(t, ds)
	assert.Equal(t, 1, calls, "the clock is read once per batch")
}

func TestTransformDeterministicUnderFixedClock(t *testing.T) {
	stamp := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	tr := New(WithClock(fixedClock(stamp)))

	raw := &types.RawDataset{Postings: []types.RawPosting{
		{ID: "A", Description: strPtr("python junior"), Salaire: strPtr("2500 € par mois")},
		{ID: "B", Intitule: strPtr("<i>Chef</i>"), DateCreation: strPtr("2025-01-12")},
	}}

	first := tr.ApplyKeywordAnalysis(tr.Transform(raw))
	second := tr.ApplyKeywordAnalysis(tr.Transform(raw))
	assert.Equal(t, first, second)
}

func TestApplyKeywordAnalysis(t *testing.T) {
	tr := New()
	ds := &types.StandardizedDataset{Rows: []types.StandardizedPosting{
		{ID: "A", DescriptionClean: strPtr("Développeur Python avec SQL et AWS")},
		{ID: "B", DescriptionClean: strPtr("Chef de rayon")},
	}}

	out := tr.ApplyKeywordAnalysis(ds)
	require.NotNil(t, out)

	first := out.Rows[0].Keywords
	require.NotNil(t, first)
	assert.Equal(t, []string{"python", "sql", "aws"}, first.ExtractedKeywords)
	assert.True(t, first.HasPython)
	assert.True(t, first.HasSQL)
	assert.True(t, first.HasAWS)
	assert.False(t, first.HasJava)
	assert.Equal(t, 3, first.KeywordCount)

	second := out.Rows[1].Keywords
	require.NotNil(t, second)
	assert.Empty(t, second.ExtractedKeywords)
	assert.Equal(t, 0, second.KeywordCount)
}

func TestApplyKeywordAnalysisIdempotent(t *testing.T) {
	tr := New()
	ds := &types.StandardizedDataset{Rows: []types.StandardizedPosting{
		{ID: "A", DescriptionClean: strPtr("machine learning et docker")},
	}}

	once := tr.ApplyKeywordAnalysis(ds)
	firstRun := *once.Rows[0].Keywords

	twice := tr.ApplyKeywordAnalysis(once)
	require.NotNil(t, twice.Rows[0].Keywords)
	assert.Equal(t, firstRun.ExtractedKeywords, twice.Rows[0].Keywords.ExtractedKeywords)
	assert.Equal(t, firstRun.KeywordCount, twice.Rows[0].Keywords.KeywordCount)
	assert.True(t, twice.Rows[0].Keywords.HasMachineLearning)
}

func TestApplyKeywordAnalysisCustomVocabulary(t *testing.T) {
	tr := New(WithKeywords([]string{"cobol", "fortran"}))
	ds := &types.StandardizedDataset{Rows: []types.StandardizedPosting{
		{ID: "A", DescriptionClean: strPtr("du cobol, du python")},
	}}

	out := tr.ApplyKeywordAnalysis(ds)
	kw := out.Rows[0].Keywords
	require.NotNil(t, kw)
	assert.Equal(t, []string{"cobol"}, kw.ExtractedKeywords)
	assert.False(t, kw.HasPython, "the override replaces the built-in vocabulary")
}

func TestApplyKeywordAnalysisPassthrough(t *testing.T) {
	tr := New()
	assert.Nil(t, tr.ApplyKeywordAnalysis(nil))

	// No cleaned description anywhere: rows pass through untouched.
	ds := &types.StandardizedDataset{Rows: []types.StandardizedPosting{{ID: "A"}}}
	out := tr.ApplyKeywordAnalysis(ds)
	require.NotNil(t, out)
	assert.Nil(t, out.Rows[0].Keywords)
}
