// Package pipeline sequences the ETL stages for one date range:
// extract, transform, keyword analysis, load preparation, connect,
// schema ensure, load. The state machine is linear: any stage failure
// short-circuits to a terminal zero-records outcome, and retrying is
// left to the next scheduled invocation — idempotency rests on
// ID-based dedup, not transactions.
package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"job-etl-go/internal/config"
	"job-etl-go/internal/extractor"
	"job-etl-go/internal/loader"
	"job-etl-go/internal/logger"
	"job-etl-go/internal/storage"
	"job-etl-go/internal/storage/models"
	"job-etl-go/internal/transformer"
	"job-etl-go/internal/types"
)

// Options parameterizes one run.
type Options struct {
	StartDate string // YYYYMMDD, inclusive
	EndDate   string // YYYYMMDD inclusive, empty means today
	SkipLoad  bool   // dry run: stop before touching the database
	CSVDir    string // when set, write a CSV snapshot of the standardized table here
}

// Result aggregates the per-stage counts of one run.
type Result struct {
	RunID       string
	Extracted   int
	Transformed int
	Prepared    int
	Skipped     int // rows filtered out by the loaded-ID cache
	Loaded      int
	Elapsed     time.Duration
}

// Pipeline owns the stage sequencing.
type Pipeline struct {
	cfg         *config.Config
	store       *storage.Storage
	transformer *transformer.Transformer
}

// New creates a Pipeline on top of an initialized storage aggregate.
func New(cfg *config.Config, store *storage.Storage) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		store:       store,
		transformer: transformer.New(transformer.WithKeywords(cfg.Keywords)),
	}
}

// Run executes the pipeline once. A nil error with zero loaded records
// is a graceful no-op (nothing to process); a non-nil error is a hard
// stage failure.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	runLog := logger.Logger.With().Str("run_id", result.RunID).Logger()
	started := time.Now()
	defer func() { result.Elapsed = time.Since(started) }()

	runLog.Info().
		Str("start_date", opts.StartDate).
		Str("end_date", opts.EndDate).
		Bool("skip_load", opts.SkipLoad).
		Msg("pipeline run starting")

	// Scratch directory for remote downloads, removed on every exit path.
	if err := os.MkdirAll(p.cfg.Extractor.TempDir, 0o755); err != nil {
		return result, fmt.Errorf("create temp parent %s: %w", p.cfg.Extractor.TempDir, err)
	}
	downloadDir, err := os.MkdirTemp(p.cfg.Extractor.TempDir, "remote_batches_")
	if err != nil {
		return result, fmt.Errorf("create download dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(downloadDir); err != nil {
			runLog.Warn().Err(err).Str("dir", downloadDir).Msg("temp download dir cleanup failed")
		}
	}()

	// EXTRACT
	var remote storage.ObjectStorage
	if p.store.MinIO != nil {
		remote = p.store.MinIO
	}
	ext := extractor.New(p.cfg.Extractor, remote)
	var raw *types.RawDataset
	stage(runLog, "extract", func() {
		raw = ext.ExtractByDateRange(ctx, opts.StartDate, opts.EndDate, downloadDir)
	})
	if raw.Len() == 0 {
		runLog.Warn().Msg("no postings extracted for the period, nothing to do")
		return result, nil
	}
	result.Extracted = raw.Len()

	// TRANSFORM + KEYWORD_ANALYSIS
	var ds *types.StandardizedDataset
	stage(runLog, "transform", func() {
		ds = p.transformer.Transform(raw)
		ds = p.transformer.ApplyKeywordAnalysis(ds)
	})
	if ds.Len() == 0 {
		return result, fmt.Errorf("transformation produced no rows from %d postings", raw.Len())
	}
	result.Transformed = ds.Len()

	if opts.CSVDir != "" {
		path := filepath.Join(opts.CSVDir, fmt.Sprintf("france_travail_transformed_%s.csv", opts.StartDate))
		if err := writeCSVSnapshot(ds, path); err != nil {
			runLog.Error().Err(err).Str("path", path).Msg("csv snapshot failed")
		} else {
			runLog.Info().Str("path", path).Msg("csv snapshot written")
		}
	}

	if opts.SkipLoad {
		runLog.Info().Msg("load stage skipped on request")
		return result, nil
	}

	// LOAD_PREP
	var records []models.JobRecord
	stage(runLog, "load_prep", func() {
		records = loader.New(p.cfg.Loader, nil).MapToSchema(ds)
	})
	if records == nil {
		return result, fmt.Errorf("standardized output could not be mapped to the target schema")
	}
	result.Prepared = len(records)

	records = p.filterAlreadyLoaded(ctx, runLog, records, result)
	if len(records) == 0 {
		runLog.Info().Msg("every prepared row was already loaded in a previous run")
		return result, nil
	}

	// CONNECT
	var connectErr error
	stage(runLog, "connect", func() {
		connectErr = p.store.ConnectMySQL()
	})
	if connectErr != nil {
		runLog.Error().Err(connectErr).
			Str("host", p.cfg.MySQL.Host).
			Int("port", p.cfg.MySQL.Port).
			Str("database", p.cfg.MySQL.Database).
			Msg("database connection failed; verify the instance is reachable from this network and credentials are correct")
		return result, fmt.Errorf("connect to database: %w", connectErr)
	}

	// SCHEMA_ENSURE
	ld := loader.New(p.cfg.Loader, p.store.MySQL.DB())
	schemaOK := false
	stage(runLog, "schema_ensure", func() {
		schemaOK = ld.EnsureSchema()
	})
	if !schemaOK {
		return result, fmt.Errorf("target table %s could not be ensured", p.cfg.Loader.Table)
	}

	// LOAD
	loaded := 0
	stage(runLog, "load", func() {
		loaded = ld.Load(records)
	})
	if loaded == 0 {
		return result, fmt.Errorf("load into %s failed", p.cfg.Loader.Table)
	}
	result.Loaded = loaded

	p.markLoaded(ctx, runLog, records)

	runLog.Info().
		Int("extracted", result.Extracted).
		Int("transformed", result.Transformed).
		Int("skipped", result.Skipped).
		Int("loaded", result.Loaded).
		Dur("elapsed", time.Since(started)).
		Msg("pipeline run complete")
	return result, nil
}

// filterAlreadyLoaded drops rows whose IDs the cache marks as loaded
// by a previous run. Cache errors disable the filter for this run; the
// store's upsert-ignore remains the backstop.
func (p *Pipeline) filterAlreadyLoaded(ctx context.Context, runLog zerolog.Logger, records []models.JobRecord, result *Result) []models.JobRecord {
	if p.store.Redis == nil {
		return records
	}

	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	loaded, err := p.store.Redis.FilterLoaded(ctx, p.cfg.Loader.Source, ids)
	if err != nil {
		runLog.Warn().Err(err).Msg("loaded-id cache lookup failed, loading everything")
		return records
	}

	kept := records[:0]
	for i := range records {
		if loaded[records[i].ID] {
			result.Skipped++
			continue
		}
		kept = append(kept, records[i])
	}
	if result.Skipped > 0 {
		runLog.Info().Int("skipped", result.Skipped).Msg("rows already loaded in a previous run")
	}
	return kept
}

// markLoaded records the loaded IDs in the cache. Failures only cost
// future runs a cache hit.
func (p *Pipeline) markLoaded(ctx context.Context, runLog zerolog.Logger, records []models.JobRecord) {
	if p.store.Redis == nil {
		return
	}
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	if err := p.store.Redis.MarkLoaded(ctx, p.cfg.Loader.Source, ids); err != nil {
		runLog.Warn().Err(err).Msg("loaded-id cache update failed")
	}
}

// stage runs one pipeline stage with entry/exit logging and timing.
func stage(runLog zerolog.Logger, name string, fn func()) {
	runLog.Info().Str("stage", name).Msg("stage starting")
	started := time.Now()
	fn()
	runLog.Info().Str("stage", name).Dur("elapsed", time.Since(started)).Msg("stage finished")
}

// csvHeader is the snapshot column order.
var csvHeader = []string{
	"id", "intitule", "intitule_clean", "description_clean", "entreprise_clean",
	"lieu_travail", "lieu_travail_clean", "type_contrat", "contract_type_std",
	"experience_level", "min_salary", "max_salary", "salary_periodicity",
	"currency", "date_creation", "date_actualisation", "extracted_keywords",
	"keyword_count", "etl_timestamp",
}

// writeCSVSnapshot dumps the standardized table to a local CSV file.
func writeCSVSnapshot(ds *types.StandardizedDataset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	etl := ds.ETLTimestamp.Format("2006-01-02 15:04:05")
	for i := range ds.Rows {
		row := &ds.Rows[i]
		record := []string{
			row.ID,
			strOrEmpty(row.Intitule),
			strOrEmpty(row.IntituleClean),
			strOrEmpty(row.DescriptionClean),
			strOrEmpty(row.EntrepriseClean),
			strOrEmpty(row.LieuTravail),
			strOrEmpty(row.LieuTravailClean),
			strOrEmpty(row.TypeContrat),
			strOrEmpty(row.ContractTypeStd),
			strOrEmpty(row.ExperienceLevel),
			floatOrEmpty(row.MinSalary),
			floatOrEmpty(row.MaxSalary),
			strOrEmpty(row.SalaryPeriodicity),
			strOrEmpty(row.Currency),
			strOrEmpty(row.DateCreationISO),
			strOrEmpty(row.DateActualisationISO),
			keywordsOrEmpty(row.Keywords),
			countOrEmpty(row.Keywords),
			etl,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func keywordsOrEmpty(k *types.KeywordFeatures) string {
	if k == nil {
		return ""
	}
	out := ""
	for i, kw := range k.ExtractedKeywords {
		if i > 0 {
			out += ";"
		}
		out += kw
	}
	return out
}

func countOrEmpty(k *types.KeywordFeatures) string {
	if k == nil {
		return ""
	}
	return strconv.Itoa(k.KeywordCount)
}
