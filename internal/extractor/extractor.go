// Package extractor discovers raw posting batches on local disk and in
// object storage, and folds them into one deduplicated dataset.
//
// Every failure below "zero postings found anywhere" is non-fatal:
// missing directories, unreachable object storage and malformed batch
// files reduce the yield but never abort the run.
package extractor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"job-etl-go/internal/config"
	"job-etl-go/internal/logger"
	"job-etl-go/internal/storage"
	"job-etl-go/internal/types"
)

// Extractor produces the unified posting set for a date range. A nil
// remote store restricts extraction to local batches.
type Extractor struct {
	cfg    config.ExtractorConfig
	remote storage.ObjectStorage
}

// New creates an Extractor.
func New(cfg config.ExtractorConfig, remote storage.ObjectStorage) *Extractor {
	return &Extractor{cfg: cfg, remote: remote}
}

// ListLocalBatches lists the batch files in the local data directory.
// An absent directory yields an empty list.
func (e *Extractor) ListLocalBatches() []string {
	pattern := filepath.Join(e.cfg.DataDir, e.cfg.FilePattern)
	files, err := filepath.Glob(pattern)
	if err != nil {
		logger.Warn().Err(err).Str("pattern", pattern).Msg("local batch listing failed")
		return []string{}
	}
	logger.Info().Int("count", len(files)).Str("pattern", pattern).Msg("local batch files found")
	return files
}

// ListRemoteBatches lists the batch keys under the configured remote
// prefix. Any connectivity or permission failure is logged and yields
// an empty list; remote access is best effort.
func (e *Extractor) ListRemoteBatches(ctx context.Context) []string {
	if e.remote == nil {
		return []string{}
	}
	keys, err := e.remote.ListBatchKeys(ctx, e.cfg.RemotePrefix)
	if err != nil {
		logger.Warn().Err(err).Str("prefix", e.cfg.RemotePrefix).Msg("remote batch listing failed")
		return []string{}
	}
	logger.Info().Int("count", len(keys)).Str("prefix", e.cfg.RemotePrefix).Msg("remote batch files found")
	return keys
}

// FetchRemoteBatch downloads one remote batch into localDir. Returns
// the empty string on failure (logged).
func (e *Extractor) FetchRemoteBatch(ctx context.Context, key, localDir string) string {
	if e.remote == nil {
		return ""
	}
	path, err := e.remote.DownloadBatch(ctx, key, localDir)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("remote batch download failed")
		return ""
	}
	return path
}

// batchFileDate extracts the batch date from a file name: the first
// underscore-delimited token of exactly eight digits, in YYYYMMDD form.
func batchFileDate(name string) (string, bool) {
	for _, token := range strings.Split(filepath.Base(name), "_") {
		if len(token) == 8 && allDigits(token) {
			return token, true
		}
	}
	return "", false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// FilterBatchesByDate keeps the batches whose embedded file date lies
// in [startDate, endDate]. Comparison is lexicographic on the YYYYMMDD
// form, which is safe within a century. Batches without a date token
// are excluded.
func FilterBatchesByDate(batches []string, startDate, endDate string) []string {
	filtered := []string{}
	for _, batch := range batches {
		date, ok := batchFileDate(batch)
		if !ok {
			continue
		}
		if startDate <= date && date <= endDate {
			filtered = append(filtered, batch)
		}
	}
	return filtered
}

// ReadBatch parses one batch file. Malformed documents are logged and
// reported as nil, never as a failure of the run.
func ReadBatch(path string) *types.BatchDocument {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("file", path).Msg("batch file unreadable")
		return nil
	}
	var doc types.BatchDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Error().Err(err).Str("file", path).Msg("batch file is not valid JSON")
		return nil
	}
	return &doc
}

// ExtractPostings reads one batch and returns its postings array, empty
// when the document or the array is absent.
func ExtractPostings(path string) []types.RawPosting {
	doc := ReadBatch(path)
	if doc == nil {
		return []types.RawPosting{}
	}
	logger.Info().Int("count", len(doc.Resultats)).Str("file", filepath.Base(path)).Msg("postings extracted from batch")
	return doc.Resultats
}

// BuildUnifiedSet folds batches, in the order supplied, into one
// dataset keyed by natural ID. The first write wins: a posting whose ID
// is already present is dropped, not merged. Postings without an ID are
// dropped as well. Returns nil when no postings were found at all.
func BuildUnifiedSet(batches []string) *types.RawDataset {
	if len(batches) == 0 {
		logger.Warn().Msg("no batch files to process")
		return nil
	}

	seen := make(map[string]bool)
	var postings []types.RawPosting
	for _, batch := range batches {
		for _, posting := range ExtractPostings(batch) {
			if posting.ID == "" || seen[posting.ID] {
				continue
			}
			seen[posting.ID] = true
			postings = append(postings, posting)
		}
	}

	if len(postings) == 0 {
		logger.Warn().Msg("no postings found in any processed batch")
		return nil
	}
	logger.Info().Int("count", len(postings)).Msg("unique postings extracted")
	return &types.RawDataset{Postings: postings}
}

// ExtractByDateRange combines local and remote batches for the
// inclusive [startDate, endDate] range and builds the unified set.
// Remote batches already present locally are not downloaded again;
// downloads land in downloadDir, which the caller owns and cleans up.
// An empty endDate means today.
func (e *Extractor) ExtractByDateRange(ctx context.Context, startDate, endDate, downloadDir string) *types.RawDataset {
	if endDate == "" {
		endDate = time.Now().Format("20060102")
	}
	logger.Info().Str("start", startDate).Str("end", endDate).Msg("extracting postings for date range")

	localFiles := FilterBatchesByDate(e.ListLocalBatches(), startDate, endDate)
	logger.Info().Int("count", len(localFiles)).Msg("local batches in range")

	localNames := make(map[string]bool, len(localFiles))
	for _, f := range localFiles {
		localNames[filepath.Base(f)] = true
	}

	allFiles := append([]string{}, localFiles...)
	if e.remote != nil {
		remoteKeys := FilterBatchesByDate(e.ListRemoteBatches(ctx), startDate, endDate)
		logger.Info().Int("count", len(remoteKeys)).Msg("remote batches in range")
		for _, key := range remoteKeys {
			if localNames[filepath.Base(key)] {
				continue
			}
			if path := e.FetchRemoteBatch(ctx, key, downloadDir); path != "" {
				logger.Info().Str("key", key).Msg("remote batch downloaded")
				allFiles = append(allFiles, path)
			}
		}
	}

	logger.Info().Int("count", len(allFiles)).Msg("extracting from combined batch list")
	return BuildUnifiedSet(allFiles)
}
