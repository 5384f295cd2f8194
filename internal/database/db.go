package database

import (
	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

type DBManager interface {
	CreateFileRecordsTable() error
	CreateSensorFeaturesTable() error
	InsertFileRecord(record models.FileRecord) (int, error)
	UpdateFileStatus(fileID int, status string, errors any) error
	IsFileAlreadyProcessed(checksum string) (bool, error)
	InsertSensorFeatures(fileID int, features []models.SensorFeatures) error
	GetFileFeatures(fileName string) ([]models.SensorFeatures, error)
}
