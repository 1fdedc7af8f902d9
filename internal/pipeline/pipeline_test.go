package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-etl-go/internal/config"
	"job-etl-go/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Extractor: config.ExtractorConfig{
			DataDir:     t.TempDir(),
			FilePattern: "*.json",
			TempDir:     t.TempDir(),
		},
		Loader: config.LoaderConfig{
			Table:     "france_travail_jobs",
			BatchSize: 500,
			Source:    "FRANCE_TRAVAIL",
		},
	}
}

func writeBatch(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	path := filepath.Join(cfg.Extractor.DataDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRunDryRunWritesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	writeBatch(t, cfg, "france_travail_20250110_090000.json", `{"resultats":[
		{"id":"A1","intitule":"<b>Dev</b> Python","description":"Profil junior, python et sql","typeContrat":"CDI","salaire":"2500 € par mois"},
		{"id":"A2","intitule":"Chef de projet","description":"Profil senior","typeContrat":"CDD"}
	]}`)
	writeBatch(t, cfg, "france_travail_20250111_090000.json", `{"resultats":[
		{"id":"A2","intitule":"Doublon ignoré"},
		{"id":"A3","intitule":"Data engineer","description":"aws et docker"}
	]}`)

	csvDir := t.TempDir()
	p := New(cfg, storage.NewStorage(context.Background(), cfg))
	result, err := p.Run(context.Background(), Options{
		StartDate: "20250110",
		EndDate:   "20250111",
		SkipLoad:  true,
		CSVDir:    csvDir,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Extracted, "duplicate IDs across batches count once")
	assert.Equal(t, 3, result.Transformed)
	assert.Equal(t, 0, result.Loaded, "dry runs never load")

	file, err := os.Open(filepath.Join(csvDir, "france_travail_transformed_20250110.csv"))
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus one row per posting")
	assert.Equal(t, csvHeader, rows[0])

	byID := make(map[string][]string, len(rows)-1)
	for _, row := range rows[1:] {
		byID[row[0]] = row
	}

	first := byID["A1"]
	require.NotNil(t, first)
	assert.Equal(t, "Dev Python", first[2], "intitule_clean has tags stripped")
	assert.Equal(t, "CDI", first[8])
	assert.Equal(t, "ENTRY", first[9])
	assert.Equal(t, "2500", first[10])
	assert.Equal(t, "2500", first[11])
	assert.Equal(t, "monthly", first[12])
	assert.Equal(t, "python;sql", first[16])
	assert.Equal(t, "2", first[17])

	second := byID["A2"]
	require.NotNil(t, second)
	assert.Equal(t, "Chef de projet", second[2], "the first occurrence of a duplicated ID wins")
}

func TestRunNoBatchesIsGracefulNoOp(t *testing.T) {
	cfg := testConfig(t)

	p := New(cfg, storage.NewStorage(context.Background(), cfg))
	result, err := p.Run(context.Background(), Options{StartDate: "20250110", EndDate: "20250111"})
	require.NoError(t, err, "an empty period is not a failure")
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Extracted)
	assert.Equal(t, 0, result.Loaded)
}

func TestRunOutOfRangeBatchesIgnored(t *testing.T) {
	cfg := testConfig(t)
	writeBatch(t, cfg, "france_travail_20250201_090000.json", `{"resultats":[{"id":"Z1"}]}`)

	p := New(cfg, storage.NewStorage(context.Background(), cfg))
	result, err := p.Run(context.Background(), Options{StartDate: "20250110", EndDate: "20250111", SkipLoad: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Extracted)
}
