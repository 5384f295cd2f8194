package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

func ConnectDB(connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	return dbpool, nil
}

type PostgresDBManager struct {
	dbpool *pgxpool.Pool
	ctx    context.Context
}

func NewPostgresDBManager(ctx context.Context, pool *pgxpool.Pool) *PostgresDBManager {
	return &PostgresDBManager{dbpool: pool, ctx: ctx}
}

func (m *PostgresDBManager) CreateFileRecordsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS file_records (
		id SERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		status VARCHAR(50) NOT NULL CHECK (status IN ('DONE', 'DONE_WITH_ERRORS', 'PROCESSING', 'DISCARDED')),
		checksum VARCHAR(64),
		sensors TEXT[],
		read_duration_ms DOUBLE PRECISION,
		errors jsonb
	);
	CREATE INDEX IF NOT EXISTS idx_file_records_checksum ON file_records (checksum);
	CREATE INDEX IF NOT EXISTS idx_file_records_file_name ON file_records (file_name);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating file_records table: %v", err)
	}

	return nil
}

// CreateSensorFeaturesTable creates the table holding one row of condition indicators
// per sensor of an ingested file.
func (m *PostgresDBManager) CreateSensorFeaturesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sensor_features (
		file_id INTEGER NOT NULL REFERENCES file_records (id) ON DELETE CASCADE,
		sensor VARCHAR(64) NOT NULL,
		samples INTEGER NOT NULL,
		rms DOUBLE PRECISION NOT NULL,
		peak DOUBLE PRECISION NOT NULL,
		crest_factor DOUBLE PRECISION NOT NULL,
		shape_factor DOUBLE PRECISION NOT NULL,
		arv DOUBLE PRECISION NOT NULL,
		dominant_frequency DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (file_id, sensor)
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating sensor_features table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) InsertFileRecord(record models.FileRecord) (int, error) {
	query := `
	INSERT INTO file_records (run_id, file_name, processed_at, status, checksum, sensors, read_duration_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id;`

	readDurationMs := float64(record.ReadDuration) / float64(time.Millisecond)

	var fileID int
	err := m.dbpool.QueryRow(m.ctx, query,
		record.RunID,
		record.FileName,
		record.ProcessedAt,
		record.Status,
		record.Checksum,
		record.Sensors,
		readDurationMs,
	).Scan(&fileID)
	if err != nil {
		return 0, fmt.Errorf("error inserting file record: %v", err)
	}

	return fileID, nil
}

func (m *PostgresDBManager) UpdateFileStatus(fileID int, status string, errors any) error {
	query := `
	UPDATE file_records
	SET status = $1,
		errors = $2
	WHERE id = $3;`

	_, err := m.dbpool.Exec(m.ctx, query, status, errors, fileID)
	if err != nil {
		return fmt.Errorf("error updating file status: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) IsFileAlreadyProcessed(checksum string) (bool, error) {
	query := `
	SELECT id
	FROM file_records
	WHERE checksum = $1 AND status = 'DONE'
	LIMIT 1;`

	var id int

	err := m.dbpool.QueryRow(m.ctx, query, checksum).Scan(&id)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error finding file record by checksum: %v", err)
	}

	return true, nil
}

// InsertSensorFeatures bulk loads the features of one file with COPY.
func (m *PostgresDBManager) InsertSensorFeatures(fileID int, features []models.SensorFeatures) error {
	if len(features) == 0 {
		return nil
	}

	tx, err := m.dbpool.Begin(m.ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %v", err)
	}
	defer tx.Rollback(m.ctx)

	// The column order here must match the values built below.
	columnNames := []string{
		"file_id", "sensor", "samples", "rms", "peak", "crest_factor", "shape_factor", "arv", "dominant_frequency",
	}

	copySource := pgx.CopyFromSlice(len(features), func(i int) ([]interface{}, error) {
		f := features[i]
		return []interface{}{fileID, f.Sensor, f.Samples, f.RMS, f.Peak, f.CrestFactor, f.ShapeFactor, f.ARV, f.DominantFrequency},
			nil
	})

	_, err = tx.CopyFrom(
		m.ctx,
		pgx.Identifier{"sensor_features"},
		columnNames,
		copySource,
	)
	if err != nil {
		return fmt.Errorf("unable to copy sensor features of file %d: %v", fileID, err)
	}

	return tx.Commit(m.ctx)
}

// GetFileFeatures returns the features stored by the latest successful ingestion of fileName.
func (m *PostgresDBManager) GetFileFeatures(fileName string) ([]models.SensorFeatures, error) {
	query := `
	SELECT file_id, sensor, samples, rms, peak, crest_factor, shape_factor, arv, dominant_frequency
	FROM sensor_features
	WHERE file_id = (
		SELECT id
		FROM file_records
		WHERE file_name = $1 AND status = 'DONE'
		ORDER BY processed_at DESC
		LIMIT 1
	)
	ORDER BY sensor;`

	rows, err := m.dbpool.Query(m.ctx, query, fileName)
	if err != nil {
		return nil, fmt.Errorf("error querying sensor features: %w", err)
	}

	features, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SensorFeatures, error) {
		var f models.SensorFeatures
		err := row.Scan(&f.FileID, &f.Sensor, &f.Samples, &f.RMS, &f.Peak, &f.CrestFactor, &f.ShapeFactor, &f.ARV, &f.DominantFrequency)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning sensor features: %w", err)
	}

	return features, nil
}
