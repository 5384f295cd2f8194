package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

// ReadTSV reads a headerless tab-separated measurement file. Columns are named
// positionally after columnNames and every row must have exactly len(columnNames) fields.
func ReadTSV(filePath string, columnNames []string) (models.Table, error) {
	if len(columnNames) == 0 {
		return models.Table{}, fmt.Errorf("no column names given for %s: %w", filePath, models.ErrInvalidInput)
	}

	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Table{}, fmt.Errorf("failed to open file %s: %w", filePath, models.ErrNotFound)
		}
		return models.Table{}, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	return parseTSV(file, filePath, columnNames)
}

func parseTSV(r io.Reader, source string, columnNames []string) (models.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = len(columnNames)
	reader.ReuseRecord = true

	values := make([][]float64, len(columnNames))
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return models.Table{}, fmt.Errorf("file %s does not have %d columns: %v: %w",
					source, len(columnNames), err, models.ErrInvalidInput)
			}
			return models.Table{}, fmt.Errorf("failed to read record from %s: %w", source, err)
		}

		for i, field := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return models.Table{}, fmt.Errorf("row %d column %s of %s is not numeric: %v: %w",
					row+1, columnNames[i], source, err, models.ErrInvalidInput)
			}
			values[i] = append(values[i], value)
		}
		row++
	}

	columns := make([]models.Column, len(columnNames))
	for i, name := range columnNames {
		if values[i] == nil {
			values[i] = []float64{}
		}
		columns[i] = models.Column{Name: name, Values: values[i]}
	}

	return models.NewTable(columns...)
}
