package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thiago-r-goveia/bearing-vibration/internal/measurements"
	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
	"github.com/thiago-r-goveia/bearing-vibration/internal/parser"
)

// RawTableReader parses a measurement file into a table whose columns are named
// positionally after columnNames.
type RawTableReader interface {
	ReadTable(filePath string, columnNames []string) (models.Table, error)
}

// TSVReader reads the tab-separated files of the dataset.
type TSVReader struct{}

func (TSVReader) ReadTable(filePath string, columnNames []string) (models.Table, error) {
	return parser.ReadTSV(filePath, columnNames)
}

type ReadOptions struct {
	Sensors []string
	// SignalResolution is the time between two samples, in seconds.
	SignalResolution float64
	// AcceptableRange enables faulty-sensor filtering when set.
	AcceptableRange *float64
}

func (o ReadOptions) validate() error {
	if len(o.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required: %w", models.ErrInvalidInput)
	}
	for _, sensor := range o.Sensors {
		if sensor == models.TimeColumn {
			return fmt.Errorf("sensor name %q is reserved: %w", sensor, models.ErrInvalidInput)
		}
	}
	if !(o.SignalResolution > 0) {
		return fmt.Errorf("signal resolution must be positive, got %v: %w", o.SignalResolution, models.ErrInvalidInput)
	}
	return nil
}

// FileIngestor reads a single measurement file.
type FileIngestor interface {
	ReadFile(filePath string, opts ReadOptions) (models.Table, time.Duration, error)
}

// FileReader reads one measurement file, derives the elapsed time of every sample
// and drops faulty sensors.
type FileReader struct {
	reader RawTableReader
}

// NewFileReader creates a FileReader on top of the given raw table reader.
func NewFileReader(reader RawTableReader) *FileReader {
	return &FileReader{
		reader: reader,
	}
}

// ReadFile returns the filtered table and the time it took to produce it.
// A table with no columns means every sensor of the file is faulty.
func (fr *FileReader) ReadFile(filePath string, opts ReadOptions) (models.Table, time.Duration, error) {
	startTime := time.Now()

	if err := opts.validate(); err != nil {
		return models.Table{}, 0, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Table{}, 0, fmt.Errorf("File not found: %s: %w", filePath, models.ErrNotFound)
		}
		return models.Table{}, 0, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}
	if info.IsDir() {
		return models.Table{}, 0, fmt.Errorf("%s is a directory, not a measurement file: %w", filePath, models.ErrInvalidInput)
	}

	table, err := fr.reader.ReadTable(filePath, opts.Sensors)
	if err != nil {
		return models.Table{}, 0, err
	}

	table, err = table.WithColumn(elapsedTime(table.NumRows(), opts.SignalResolution))
	if err != nil {
		return models.Table{}, 0, err
	}

	if opts.AcceptableRange != nil {
		table, err = measurements.DropFaultySensors(table, opts.Sensors, *opts.AcceptableRange)
		if err != nil {
			return models.Table{}, 0, fmt.Errorf("failed to check sensors of %s: %w", filePath, err)
		}
	}

	return table, time.Since(startTime), nil
}

// elapsedTime builds the column whose i-th value is i * resolution.
func elapsedTime(rows int, resolution float64) models.Column {
	values := make([]float64, rows)
	for i := range values {
		values[i] = float64(i) * resolution
	}
	return models.Column{Name: models.TimeColumn, Values: values}
}

// ScanForFiles lists the regular files directly under rootPath, sorted by name.
// Sub-directories are not descended into.
func ScanForFiles(rootPath string) ([]string, error) {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("directory not found: %s: %w", rootPath, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error listing directory %s: %w", rootPath, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		// Follow symlinks so a link to a file counts as a file.
		info, err := os.Stat(filepath.Join(rootPath, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, entry.Name())
	}

	return files, nil
}
