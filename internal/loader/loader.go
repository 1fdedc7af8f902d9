// Package loader maps standardized postings onto the persisted schema
// and appends them to the warehouse table with upsert-ignore semantics.
package loader

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"job-etl-go/internal/config"
	"job-etl-go/internal/logger"
	"job-etl-go/internal/storage/models"
	"job-etl-go/internal/types"
)

// Loader persists standardized postings. MapToSchema works without a
// connection; EnsureSchema and Load require one.
type Loader struct {
	db  *gorm.DB
	cfg config.LoaderConfig
}

// New creates a Loader bound to a warehouse connection. db may be nil
// for map-only use (dry runs, tests).
func New(cfg config.LoaderConfig, db *gorm.DB) *Loader {
	return &Loader{db: db, cfg: cfg}
}

// EnsureSchema creates the target table when it does not exist yet.
// The check-then-create sequence is idempotent: an existing table is
// left untouched. Returns false only on a hard connectivity or DDL
// failure.
func (l *Loader) EnsureSchema() bool {
	if l.db == nil {
		logger.Error().Msg("cannot ensure schema: no database connection")
		return false
	}

	if l.db.Migrator().HasTable(l.cfg.Table) {
		logger.Info().Str("table", l.cfg.Table).Msg("target table already exists")
		return true
	}

	if err := l.db.Table(l.cfg.Table).AutoMigrate(&models.JobRecord{}); err != nil {
		logger.Error().Err(err).Str("table", l.cfg.Table).
			Msg("target table creation failed; check that the database user has DDL rights")
		return false
	}
	logger.Info().Str("table", l.cfg.Table).Msg("target table created")
	return true
}

// MapToSchema shapes standardized rows onto the persisted column set:
// known columns are selected and renamed, schema columns absent from
// the input stay null, and the constant source discriminator is
// appended. Returns nil when the input is empty or when none of the
// expected source columns is populated anywhere — the latter signals
// that the transformer output is unusable, a contract violation rather
// than a transient condition.
func (l *Loader) MapToSchema(ds *types.StandardizedDataset) []models.JobRecord {
	if ds.Len() == 0 {
		logger.Warn().Msg("empty dataset, nothing to prepare for loading")
		return nil
	}

	logger.Info().Int("count", ds.Len()).Msg("preparing rows for loading")

	etl := ds.ETLTimestamp
	records := make([]models.JobRecord, 0, ds.Len())
	populated := false
	for i := range ds.Rows {
		row := &ds.Rows[i]
		record := models.JobRecord{
			ID:                row.ID,
			Intitule:          row.Intitule,
			DescriptionClean:  row.DescriptionClean,
			EntrepriseClean:   row.EntrepriseClean,
			LieuTravail:       row.LieuTravail,
			TypeContrat:       row.TypeContrat,
			ContractTypeStd:   row.ContractTypeStd,
			ExperienceLevel:   row.ExperienceLevel,
			MinSalary:         row.MinSalary,
			MaxSalary:         row.MaxSalary,
			SalaryPeriodicity: row.SalaryPeriodicity,
			Currency:          row.Currency,
			DateCreation:      parseISODate(row.DateCreationISO),
			DateActualisation: parseISODate(row.DateActualisationISO),
			ETLTimestamp:      &etl,
			Source:            l.cfg.Source,
		}
		if row.Keywords != nil {
			count := row.Keywords.KeywordCount
			record.KeywordCount = &count
			record.HasPython = boolPtr(row.Keywords.HasPython)
			record.HasJava = boolPtr(row.Keywords.HasJava)
			record.HasJavascript = boolPtr(row.Keywords.HasJavascript)
			record.HasSQL = boolPtr(row.Keywords.HasSQL)
			record.HasAWS = boolPtr(row.Keywords.HasAWS)
			record.HasMachineLearning = boolPtr(row.Keywords.HasMachineLearning)
		}
		if recordPopulated(row) {
			populated = true
		}
		records = append(records, record)
	}

	if !populated {
		logger.Error().Msg("no expected source column is populated; transformer output unusable")
		return nil
	}

	logger.Info().Int("count", len(records)).Msg("rows ready for loading")
	return records
}

// recordPopulated reports whether the row carries any of the expected
// source columns.
func recordPopulated(row *types.StandardizedPosting) bool {
	return row.ID != "" ||
		row.Intitule != nil ||
		row.DescriptionClean != nil ||
		row.EntrepriseClean != nil ||
		row.LieuTravail != nil ||
		row.TypeContrat != nil ||
		row.ContractTypeStd != nil ||
		row.ExperienceLevel != nil ||
		row.MinSalary != nil ||
		row.MaxSalary != nil ||
		row.SalaryPeriodicity != nil ||
		row.Currency != nil ||
		row.DateCreationISO != nil ||
		row.DateActualisationISO != nil ||
		row.Keywords != nil
}

// Load appends records to the target table in fixed-size batches with
// insert-ignore conflict handling: a row whose natural ID already
// exists is skipped, which keeps reruns idempotent. Returns the number
// of rows submitted, or 0 when the whole call failed.
func (l *Loader) Load(records []models.JobRecord) int {
	if len(records) == 0 || l.db == nil {
		logger.Error().Msg("cannot load: empty record set or no database connection")
		return 0
	}

	result := l.db.Table(l.cfg.Table).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(records, l.cfg.BatchSize)
	if result.Error != nil {
		logger.Error().Err(result.Error).Str("table", l.cfg.Table).
			Msg("bulk insert failed; verify host, port, credentials and network access to the database")
		return 0
	}

	if int(result.RowsAffected) != len(records) {
		logger.Info().
			Int("submitted", len(records)).
			Int64("inserted", result.RowsAffected).
			Msg("some rows were skipped as already-loaded duplicates")
	}
	logger.Info().Int("count", len(records)).Str("table", l.cfg.Table).Msg("load complete")
	return len(records)
}

func parseISODate(iso *string) *time.Time {
	if iso == nil {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", *iso)
	if err != nil {
		return nil
	}
	return &parsed
}

func boolPtr(b bool) *bool {
	return &b
}
