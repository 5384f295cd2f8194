// Package measurements decides which sensors of a measurement table are usable.
//
// A sensor is faulty when the spread of its samples over a file, max minus min,
// is below an acceptable range. Faulty sensor columns are dropped; when every
// requested sensor is faulty the whole table collapses to the empty table.
package measurements

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

// SensorRange returns max(values) - min(values), ignoring NaN samples.
func SensorRange(values []float64) (float64, error) {
	samples := values
	if floats.HasNaN(values) {
		samples = make([]float64, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				samples = append(samples, v)
			}
		}
	}

	if len(samples) == 0 {
		return 0, fmt.Errorf("sensor has no samples: %w", models.ErrInvalidInput)
	}

	return floats.Max(samples) - floats.Min(samples), nil
}

// FaultySensors returns, in the order given, the sensors whose range is below acceptableRange.
func FaultySensors(table models.Table, sensors []string, acceptableRange float64) ([]string, error) {
	if math.IsNaN(acceptableRange) || acceptableRange < 0 {
		return nil, fmt.Errorf("acceptable range must be >= 0, got %v: %w", acceptableRange, models.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(sensors))
	faulty := make([]string, 0, len(sensors))
	for _, sensor := range sensors {
		if seen[sensor] {
			return nil, fmt.Errorf("sensor %q requested more than once: %w", sensor, models.ErrInvalidInput)
		}
		seen[sensor] = true

		col, ok := table.Column(sensor)
		if !ok {
			return nil, fmt.Errorf("sensor %q is not a column of the table: %w", sensor, models.ErrInvalidInput)
		}

		spread, err := SensorRange(col.Values)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", sensor, err)
		}
		if spread < acceptableRange {
			faulty = append(faulty, sensor)
		}
	}

	return faulty, nil
}

// DropFaultySensors removes faulty sensor columns from table. Columns that are not
// in sensors, such as the elapsed time, are never evaluated nor dropped.
// If every requested sensor is faulty the empty table is returned.
func DropFaultySensors(table models.Table, sensors []string, acceptableRange float64) (models.Table, error) {
	faulty, err := FaultySensors(table, sensors, acceptableRange)
	if err != nil {
		return models.Table{}, err
	}

	if len(sensors) > 0 && len(faulty) == len(sensors) {
		return models.Table{}, nil
	}

	return table.Without(faulty...), nil
}
