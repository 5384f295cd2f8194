package ingestion

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thiago-r-goveia/bearing-vibration/internal/config"
	"github.com/thiago-r-goveia/bearing-vibration/internal/logger"
	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
	"github.com/thiago-r-goveia/bearing-vibration/pkg/checksum"
)

// MockDBManager is a mock implementation of the DBManager interface.
type MockDBManager struct {
	mock.Mock
}

func (m *MockDBManager) CreateFileRecordsTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) CreateSensorFeaturesTable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBManager) InsertFileRecord(record models.FileRecord) (int, error) {
	args := m.Called(record)
	return args.Int(0), args.Error(1)
}

func (m *MockDBManager) UpdateFileStatus(fileID int, status string, errors any) error {
	args := m.Called(fileID, status, errors)
	return args.Error(0)
}

func (m *MockDBManager) IsFileAlreadyProcessed(checksum string) (bool, error) {
	args := m.Called(checksum)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBManager) InsertSensorFeatures(fileID int, features []models.SensorFeatures) error {
	args := m.Called(fileID, features)
	return args.Error(0)
}

func (m *MockDBManager) GetFileFeatures(fileName string) ([]models.SensorFeatures, error) {
	args := m.Called(fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SensorFeatures), args.Error(1)
}

func recordWith(fileName, status string) interface{} {
	return mock.MatchedBy(func(r models.FileRecord) bool {
		return r.FileName == fileName && r.Status == status && r.RunID != "" && r.Checksum != ""
	})
}

func newTestService(dbManager *MockDBManager, cfg config.Config) *IngestionService {
	reader := newTestDirectoryReader(cfg.NumReaderWorkers, logger.Discard())
	return NewIngestionService(dbManager, reader, cfg, logger.Discard())
}

func testConfig() config.Config {
	return config.Config{
		Sensors:           []string{"channel_1", "channel_2"},
		SamplingFrequency: 1000,
		AcceptableRange:   floatPtr(0.1),
		NumReaderWorkers:  1,
	}
}

func TestIngestionService_Execute(t *testing.T) {
	t.Run("Success case - persists new files and records discarded ones", func(t *testing.T) {
		tempDir := t.TempDir()
		processedPath := writeTestFile(t, tempDir, "2004.02.12.10.32.39", vibrationRows(16, 2, 1))
		newPath := writeTestFile(t, tempDir, "2004.02.12.10.42.39", vibrationRows(16, 2, 2))
		writeTestFile(t, tempDir, "2004.02.12.10.52.39", constantRows(16, 2))

		processedSum, err := checksum.GetFileChecksum(processedPath)
		require.NoError(t, err)
		newSum, err := checksum.GetFileChecksum(newPath)
		require.NoError(t, err)

		dbManager := new(MockDBManager)
		dbManager.On("InsertFileRecord", recordWith("2004.02.12.10.52.39", models.FILE_STATUS_DISCARDED)).Return(1, nil).Once()
		dbManager.On("IsFileAlreadyProcessed", processedSum).Return(true, nil).Once()
		dbManager.On("IsFileAlreadyProcessed", newSum).Return(false, nil).Once()
		dbManager.On("InsertFileRecord", mock.MatchedBy(func(r models.FileRecord) bool {
			return r.FileName == "2004.02.12.10.42.39" &&
				r.Status == models.FILE_STATUS_PROCESSING &&
				r.Checksum == newSum &&
				assert.ObjectsAreEqual([]string{"channel_1", "channel_2"}, r.Sensors)
		})).Return(42, nil).Once()
		dbManager.On("InsertSensorFeatures", 42, mock.MatchedBy(func(features []models.SensorFeatures) bool {
			return len(features) == 2 && features[0].Sensor == "channel_1" && features[0].Samples == 16
		})).Return(nil).Once()
		dbManager.On("UpdateFileStatus", 42, models.FILE_STATUS_DONE, nil).Return(nil).Once()

		summary, err := newTestService(dbManager, testConfig()).Execute(tempDir)

		require.NoError(t, err)
		assert.NotEmpty(t, summary.RunID)
		assert.Equal(t, 2, summary.Read)
		assert.Equal(t, 1, summary.Discarded)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 1, summary.Persisted)
		assert.Equal(t, 0, summary.Failed)
		dbManager.AssertExpectations(t)
	})

	t.Run("Error case - feature insert failure marks the file and continues", func(t *testing.T) {
		tempDir := t.TempDir()
		writeTestFile(t, tempDir, "a", vibrationRows(16, 2, 1))
		writeTestFile(t, tempDir, "b", vibrationRows(16, 2, 2))

		dbManager := new(MockDBManager)
		dbManager.On("IsFileAlreadyProcessed", mock.Anything).Return(false, nil).Twice()
		dbManager.On("InsertFileRecord", recordWith("a", models.FILE_STATUS_PROCESSING)).Return(1, nil).Once()
		dbManager.On("InsertFileRecord", recordWith("b", models.FILE_STATUS_PROCESSING)).Return(2, nil).Once()
		dbManager.On("InsertSensorFeatures", 1, mock.Anything).Return(errors.New("copy failed")).Once()
		dbManager.On("InsertSensorFeatures", 2, mock.Anything).Return(nil).Once()
		dbManager.On("UpdateFileStatus", 1, models.FILE_STATUS_DONE_WITH_ERRORS, []string{"copy failed"}).Return(nil).Once()
		dbManager.On("UpdateFileStatus", 2, models.FILE_STATUS_DONE, nil).Return(nil).Once()

		summary, err := newTestService(dbManager, testConfig()).Execute(tempDir)

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 1, summary.Persisted)
		dbManager.AssertExpectations(t)
	})

	t.Run("Error case - checksum lookup failure skips the file", func(t *testing.T) {
		tempDir := t.TempDir()
		writeTestFile(t, tempDir, "a", vibrationRows(16, 2, 1))

		dbManager := new(MockDBManager)
		dbManager.On("IsFileAlreadyProcessed", mock.Anything).Return(false, errors.New("connection reset")).Once()

		summary, err := newTestService(dbManager, testConfig()).Execute(tempDir)

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		dbManager.AssertExpectations(t)
		dbManager.AssertNotCalled(t, "InsertFileRecord", mock.Anything)
	})

	t.Run("Error case - directory read failure aborts the run", func(t *testing.T) {
		dbManager := new(MockDBManager)

		_, err := newTestService(dbManager, testConfig()).Execute(filepath.Join(t.TempDir(), "missing"))

		assert.ErrorIs(t, err, models.ErrNotFound)
		dbManager.AssertExpectations(t)
	})

	t.Run("Error case - invalid sampling frequency", func(t *testing.T) {
		cfg := testConfig()
		cfg.SamplingFrequency = 0
		dbManager := new(MockDBManager)

		_, err := newTestService(dbManager, cfg).Execute(t.TempDir())

		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestReadOptionsFromConfig(t *testing.T) {
	opts, err := ReadOptionsFromConfig(testConfig())

	require.NoError(t, err)
	assert.Equal(t, []string{"channel_1", "channel_2"}, opts.Sensors)
	assert.InDelta(t, 0.001, opts.SignalResolution, 1e-15)
	require.NotNil(t, opts.AcceptableRange)
	assert.Equal(t, 0.1, *opts.AcceptableRange)
}
