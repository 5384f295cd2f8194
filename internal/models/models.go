package models

import (
	"fmt"
	"time"
)

// TimeColumn is the derived elapsed-time column appended to every measurement table.
const TimeColumn = "measurement_time_in_seconds"

// FileNameColumn is the identifier column reported first by a TaggedTable.
const FileNameColumn = "file_name"

type Column struct {
	Name   string
	Values []float64
}

// Table is an ordered set of named float64 columns of equal length.
// A Table is treated as immutable: every transformation returns a new Table.
type Table struct {
	Columns []Column
}

// NewTable validates that column names are unique and that all columns have the same length.
func NewTable(columns ...Column) (Table, error) {
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if seen[col.Name] {
			return Table{}, fmt.Errorf("duplicate column %q: %w", col.Name, ErrInvalidInput)
		}
		seen[col.Name] = true
		if i > 0 && len(col.Values) != len(columns[0].Values) {
			return Table{}, fmt.Errorf("column %q has %d rows, expected %d: %w",
				col.Name, len(col.Values), len(columns[0].Values), ErrInvalidInput)
		}
	}
	return Table{Columns: columns}, nil
}

func (t Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

func (t Table) NumColumns() int {
	return len(t.Columns)
}

// IsEmpty reports whether the table has no columns, the state a file collapses to
// when every requested sensor is faulty.
func (t Table) IsEmpty() bool {
	return len(t.Columns) == 0
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// WithColumn returns a copy of the table with col appended as the last column.
func (t Table) WithColumn(col Column) (Table, error) {
	columns := make([]Column, 0, len(t.Columns)+1)
	columns = append(columns, t.Columns...)
	columns = append(columns, col)
	return NewTable(columns...)
}

// Without returns a copy of the table without the named columns, keeping the
// relative order of the remaining ones.
func (t Table) Without(names ...string) Table {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}

	columns := make([]Column, 0, len(t.Columns))
	for _, col := range t.Columns {
		if !drop[col.Name] {
			columns = append(columns, col)
		}
	}
	return Table{Columns: columns}
}

// TaggedTable is a filtered table labelled with the file it was read from.
// The file name behaves as a constant leading column.
type TaggedTable struct {
	FileName string
	Table
}

func (t TaggedTable) ColumnNames() []string {
	return append([]string{FileNameColumn}, t.Table.ColumnNames()...)
}

func (t TaggedTable) NumColumns() int {
	return t.Table.NumColumns() + 1
}

// DirectoryResult is the outcome of reading every file of a directory.
type DirectoryResult struct {
	Tables      []TaggedTable
	Durations   []time.Duration
	Discarded   []string
	ListingSize int
}

const (
	FILE_STATUS_PROCESSING       = "PROCESSING"
	FILE_STATUS_DONE             = "DONE"
	FILE_STATUS_DONE_WITH_ERRORS = "DONE_WITH_ERRORS"
	FILE_STATUS_DISCARDED        = "DISCARDED"
)

type FileRecord struct {
	ID           int           `json:"id,omitempty"`
	RunID        string        `json:"run_id"`
	FileName     string        `json:"file_name"`
	ProcessedAt  time.Time     `json:"processed_at"`
	Status       string        `json:"status"`
	Checksum     string        `json:"checksum,omitempty"`
	Sensors      []string      `json:"sensors,omitempty"`
	ReadDuration time.Duration `json:"read_duration,omitempty"`
}

type SensorFeatures struct {
	FileID            int     `json:"file_id,omitempty"`
	Sensor            string  `json:"sensor"`
	Samples           int     `json:"samples"`
	RMS               float64 `json:"rms"`
	Peak              float64 `json:"peak"`
	CrestFactor       float64 `json:"crest_factor"`
	ShapeFactor       float64 `json:"shape_factor"`
	ARV               float64 `json:"arv"`
	DominantFrequency float64 `json:"dominant_frequency"`
}

type RunSummary struct {
	RunID     string
	Read      int
	Discarded int
	Skipped   int
	Persisted int
	Failed    int
}
