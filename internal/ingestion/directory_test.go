package ingestion

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiago-r-goveia/bearing-vibration/internal/logger"
	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

var fourSensors = []string{"bearing_1", "bearing_2", "bearing_3", "bearing_4"}

func newTestDirectoryReader(workers int, log *slog.Logger) *DirectoryReader {
	return NewDirectoryReader(NewAsyncWorker(NewFileReader(TSVReader{}), workers, log), log)
}

// vibrationRows builds n rows of a phase shifted sine per sensor scaled by amplitude.
func vibrationRows(n, sensors int, amplitude float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, sensors)
		for s := range rows[i] {
			rows[i][s] = amplitude * math.Sin(float64(i)/3+float64(s))
		}
	}
	return rows
}

func constantRows(n, sensors int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, sensors)
		for s := range rows[i] {
			rows[i][s] = -0.05
		}
	}
	return rows
}

func TestDirectoryReader_ReadDirectory(t *testing.T) {
	opts := ReadOptions{Sensors: fourSensors, SignalResolution: 1.0 / 20000}

	t.Run("Success case - tags every table with its file name", func(t *testing.T) {
		tempDir := t.TempDir()
		writeTestFile(t, tempDir, "2004.02.12.10.42.39", vibrationRows(10, 4, 1))
		writeTestFile(t, tempDir, "2004.02.12.10.32.39", vibrationRows(10, 4, 2))

		result, err := newTestDirectoryReader(1, logger.Discard()).ReadDirectory(tempDir, opts, false)

		require.NoError(t, err)
		require.Len(t, result.Tables, 2)
		assert.Equal(t, "2004.02.12.10.32.39", result.Tables[0].FileName)
		assert.Equal(t, "2004.02.12.10.42.39", result.Tables[1].FileName)
		for _, table := range result.Tables {
			assert.Equal(t,
				[]string{models.FileNameColumn, "bearing_1", "bearing_2", "bearing_3", "bearing_4", models.TimeColumn},
				table.ColumnNames())
			assert.Equal(t, 6, table.NumColumns())
			assert.Equal(t, 10, table.NumRows())
		}
		assert.Nil(t, result.Durations)
		assert.Empty(t, result.Discarded)
		assert.Equal(t, 2, result.ListingSize)
	})

	t.Run("Success case - keeps one duration per table", func(t *testing.T) {
		tempDir := t.TempDir()
		writeTestFile(t, tempDir, "a", vibrationRows(5, 4, 1))
		writeTestFile(t, tempDir, "b", vibrationRows(5, 4, 1))
		writeTestFile(t, tempDir, "c", constantRows(5, 4))
		withRange := opts
		withRange.AcceptableRange = floatPtr(0.1)

		result, err := newTestDirectoryReader(1, logger.Discard()).ReadDirectory(tempDir, withRange, true)

		require.NoError(t, err)
		assert.Len(t, result.Durations, len(result.Tables))
		assert.Len(t, result.Tables, 2)
	})

	t.Run("Success case - discards files whose sensors are all faulty", func(t *testing.T) {
		tempDir := t.TempDir()
		writeTestFile(t, tempDir, "2004.02.12.10.32.39", vibrationRows(8, 4, 1))
		writeTestFile(t, tempDir, "2004.02.12.10.42.39", constantRows(8, 4))
		writeTestFile(t, tempDir, "2004.02.12.10.52.39", vibrationRows(8, 4, 3))
		withRange := opts
		withRange.AcceptableRange = floatPtr(0.1)

		var buf bytes.Buffer
		log := logger.New(&buf, slog.LevelInfo, logger.FormatJSON)

		result, err := newTestDirectoryReader(1, log).ReadDirectory(tempDir, withRange, false)

		require.NoError(t, err)
		assert.Equal(t, []string{"2004.02.12.10.42.39"}, result.Discarded)
		require.Len(t, result.Tables, 2)
		assert.Equal(t, "2004.02.12.10.32.39", result.Tables[0].FileName)
		assert.Equal(t, "2004.02.12.10.52.39", result.Tables[1].FileName)
		assert.Equal(t, result.ListingSize, len(result.Tables)+len(result.Discarded))

		output := buf.String()
		assert.Contains(t, output, "all sensors in file are faulty")
		assert.Contains(t, output, `"file":"2004.02.12.10.42.39"`)
		assert.Contains(t, output, `"acceptable_range":0.1`)
		assert.Contains(t, output, `"discarded_files":1`)
		assert.Contains(t, output, `"read_files":2`)
	})

	t.Run("Success case - parallel read matches sequential read", func(t *testing.T) {
		tempDir := t.TempDir()
		for i, name := range []string{"f0", "f1", "f2", "f3", "f4", "f5", "f6"} {
			if i == 4 {
				writeTestFile(t, tempDir, name, constantRows(6, 4))
				continue
			}
			writeTestFile(t, tempDir, name, vibrationRows(6, 4, float64(i+1)))
		}
		withRange := opts
		withRange.AcceptableRange = floatPtr(0.1)

		sequential, err := newTestDirectoryReader(1, logger.Discard()).ReadDirectory(tempDir, withRange, false)
		require.NoError(t, err)
		parallel, err := newTestDirectoryReader(3, logger.Discard()).ReadDirectory(tempDir, withRange, false)
		require.NoError(t, err)

		assert.Equal(t, sequential.Tables, parallel.Tables)
		assert.Equal(t, sequential.Discarded, parallel.Discarded)
		assert.Equal(t, []string{"f4"}, parallel.Discarded)
	})

	t.Run("Error case - empty directory", func(t *testing.T) {
		tempDir := t.TempDir()

		_, err := newTestDirectoryReader(1, logger.Discard()).ReadDirectory(tempDir, opts, false)

		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Contains(t, err.Error(), "No files found in the directory: "+tempDir)
	})

	t.Run("Error case - missing directory", func(t *testing.T) {
		_, err := newTestDirectoryReader(1, logger.Discard()).ReadDirectory(filepath.Join(t.TempDir(), "missing"), opts, false)

		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Error case - invalid options", func(t *testing.T) {
		_, err := newTestDirectoryReader(1, logger.Discard()).ReadDirectory(t.TempDir(), ReadOptions{Sensors: fourSensors}, false)

		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("Error case - first malformed file is reported", func(t *testing.T) {
		tempDir := t.TempDir()
		writeTestFile(t, tempDir, "f0", vibrationRows(4, 4, 1))
		writeTestFile(t, tempDir, "f1", vibrationRows(4, 3, 1))
		writeTestFile(t, tempDir, "f2", vibrationRows(4, 4, 1))
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "f3"), []byte("a\tb\tc\td\n"), 0644))
		writeTestFile(t, tempDir, "f4", vibrationRows(4, 4, 1))

		for _, workers := range []int{1, 2, 4} {
			_, err := newTestDirectoryReader(workers, logger.Discard()).ReadDirectory(tempDir, opts, false)

			require.Error(t, err)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "f1", appErr.FileName)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		}
	})
}
