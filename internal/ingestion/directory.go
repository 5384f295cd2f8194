package ingestion

import (
	"fmt"
	"log/slog"

	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

// DirectoryIngestor reads every measurement file of a directory.
type DirectoryIngestor interface {
	ReadDirectory(dirPath string, opts ReadOptions, keepDurations bool) (*models.DirectoryResult, error)
}

// DirectoryReader reads the files of a directory in name order, tags each table with
// its file name and leaves out files whose sensors are all faulty.
type DirectoryReader struct {
	worker Worker
	log    *slog.Logger
}

func NewDirectoryReader(worker Worker, log *slog.Logger) *DirectoryReader {
	return &DirectoryReader{
		worker: worker,
		log:    log,
	}
}

func (dr *DirectoryReader) ReadDirectory(dirPath string, opts ReadOptions, keepDurations bool) (*models.DirectoryResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	fileNames, err := ScanForFiles(dirPath)
	if err != nil {
		return nil, err
	}
	if len(fileNames) == 0 {
		return nil, fmt.Errorf("No files found in the directory: %s: %w", dirPath, models.ErrInvalidInput)
	}

	dr.log.Info("reading directory", slog.String("directory", dirPath), slog.Int("files", len(fileNames)))

	runner, err := dr.worker.SetupReaderWorkers(dirPath, fileNames, opts)
	if err != nil {
		return nil, err
	}
	outcomes := runner.Run()

	result := &models.DirectoryResult{ListingSize: len(fileNames)}
	for i, outcome := range outcomes {
		fileName := fileNames[i]
		if !outcome.done {
			return nil, &models.AppError{FileName: fileName, Message: "file was not read", Err: models.ErrInvalidInput}
		}
		if outcome.err != nil {
			return nil, &models.AppError{FileName: fileName, Message: "failed to read file", Err: outcome.err}
		}

		if outcome.table.IsEmpty() {
			var acceptableRange float64
			if opts.AcceptableRange != nil {
				acceptableRange = *opts.AcceptableRange
			}
			dr.log.Warn("all sensors in file are faulty for the acceptable sensor range, skipping file",
				slog.String("file", fileName),
				slog.Float64("acceptable_range", acceptableRange),
			)
			result.Discarded = append(result.Discarded, fileName)
			continue
		}

		result.Tables = append(result.Tables, models.TaggedTable{FileName: fileName, Table: outcome.table})
		if keepDurations {
			result.Durations = append(result.Durations, outcome.duration)
		}
	}

	dr.log.Info("files discarded", slog.Int("discarded_files", len(result.Discarded)))
	dr.log.Info("files read successfully", slog.Int("read_files", len(result.Tables)))

	return result, nil
}
