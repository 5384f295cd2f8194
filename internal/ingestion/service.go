package ingestion

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/thiago-r-goveia/bearing-vibration/internal/config"
	"github.com/thiago-r-goveia/bearing-vibration/internal/database"
	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
	"github.com/thiago-r-goveia/bearing-vibration/internal/signals"
	"github.com/thiago-r-goveia/bearing-vibration/pkg/checksum"
)

type IngestionService struct {
	dbManager database.DBManager
	reader    DirectoryIngestor
	config    config.Config
	log       *slog.Logger
	now       func() time.Time
}

func NewIngestionService(dbManager database.DBManager, reader DirectoryIngestor, cfg config.Config, log *slog.Logger) *IngestionService {
	return &IngestionService{
		dbManager: dbManager,
		reader:    reader,
		config:    cfg,
		log:       log,
		now:       time.Now,
	}
}

// ReadOptionsFromConfig derives the per-file read options from the configuration.
func ReadOptionsFromConfig(cfg config.Config) (ReadOptions, error) {
	resolution, err := signals.Resolution(cfg.SamplingFrequency)
	if err != nil {
		return ReadOptions{}, err
	}
	return ReadOptions{
		Sensors:          cfg.Sensors,
		SignalResolution: resolution,
		AcceptableRange:  cfg.AcceptableRange,
	}, nil
}

// Execute reads every file of filesPath and stores the features of each kept file.
// Reading errors abort the run; persistence errors are recorded against the file
// and the run moves on to the next one.
func (h *IngestionService) Execute(filesPath string) (*models.RunSummary, error) {
	summary := &models.RunSummary{RunID: uuid.NewString()}
	log := h.log.With(slog.String("run_id", summary.RunID))

	opts, err := ReadOptionsFromConfig(h.config)
	if err != nil {
		return nil, err
	}

	// Step 1: Read and filter every file of the directory.
	log.Info("reading measurement files", slog.String("directory", filesPath))
	result, err := h.reader.ReadDirectory(filesPath, opts, true)
	if err != nil {
		log.Error("failed to read directory", slog.Any("error", err))
		return nil, err
	}
	summary.Read = len(result.Tables)
	summary.Discarded = len(result.Discarded)

	// Step 2: Record discarded files so they show up in the run history.
	for _, fileName := range result.Discarded {
		if err := h.recordDiscarded(summary.RunID, filesPath, fileName); err != nil {
			log.Error("failed to record discarded file", slog.String("file", fileName), slog.Any("error", err))
			summary.Failed++
		}
	}

	// Step 3: Extract and store the features of every kept file.
	for i, tagged := range result.Tables {
		var readDuration time.Duration
		if i < len(result.Durations) {
			readDuration = result.Durations[i]
		}

		persisted, err := h.persistTable(summary.RunID, filesPath, tagged, readDuration, log)
		switch {
		case err != nil:
			log.Error("failed to persist file", slog.String("file", tagged.FileName), slog.Any("error", err))
			summary.Failed++
		case persisted:
			summary.Persisted++
		default:
			summary.Skipped++
		}
	}

	log.Info("ingestion run finished",
		slog.Int("read_files", summary.Read),
		slog.Int("discarded_files", summary.Discarded),
		slog.Int("skipped_files", summary.Skipped),
		slog.Int("persisted_files", summary.Persisted),
		slog.Int("failed_files", summary.Failed),
	)

	return summary, nil
}

func (h *IngestionService) recordDiscarded(runID, filesPath, fileName string) error {
	sum, err := checksum.GetFileChecksum(filepath.Join(filesPath, fileName))
	if err != nil {
		return err
	}

	_, err = h.dbManager.InsertFileRecord(models.FileRecord{
		RunID:       runID,
		FileName:    fileName,
		ProcessedAt: h.now(),
		Status:      models.FILE_STATUS_DISCARDED,
		Checksum:    sum,
	})
	return err
}

// persistTable reports false without error when the file content was already ingested.
func (h *IngestionService) persistTable(runID, filesPath string, tagged models.TaggedTable, readDuration time.Duration, log *slog.Logger) (bool, error) {
	sum, err := checksum.GetFileChecksum(filepath.Join(filesPath, tagged.FileName))
	if err != nil {
		return false, err
	}

	isProcessed, err := h.dbManager.IsFileAlreadyProcessed(sum)
	if err != nil {
		return false, fmt.Errorf("failed to check if file is already processed: %w", err)
	}
	if isProcessed {
		log.Info("file has already been processed, skipping", slog.String("file", tagged.FileName), slog.String("checksum", sum))
		return false, nil
	}

	fileID, err := h.dbManager.InsertFileRecord(models.FileRecord{
		RunID:        runID,
		FileName:     tagged.FileName,
		ProcessedAt:  h.now(),
		Status:       models.FILE_STATUS_PROCESSING,
		Checksum:     sum,
		Sensors:      sensorNames(tagged.Table),
		ReadDuration: readDuration,
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert file record: %w", err)
	}

	features, err := signals.ExtractFeatures(tagged.Table, h.config.SamplingFrequency)
	if err == nil {
		err = h.dbManager.InsertSensorFeatures(fileID, features)
	}
	if err != nil {
		if updateErr := h.dbManager.UpdateFileStatus(fileID, models.FILE_STATUS_DONE_WITH_ERRORS, []string{err.Error()}); updateErr != nil {
			log.Error("failed to update file status", slog.Int("file_id", fileID), slog.Any("error", updateErr))
		}
		return false, err
	}

	if err := h.dbManager.UpdateFileStatus(fileID, models.FILE_STATUS_DONE, nil); err != nil {
		return false, fmt.Errorf("failed to update file status: %w", err)
	}

	log.Debug("file persisted", slog.String("file", tagged.FileName), slog.Int("file_id", fileID), slog.Int("sensors", len(features)))
	return true, nil
}

func sensorNames(table models.Table) []string {
	names := make([]string, 0, table.NumColumns())
	for _, name := range table.ColumnNames() {
		if name != models.TimeColumn {
			names = append(names, name)
		}
	}
	return names
}
