package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

// Table is an uploaded CSV with a header row and numeric cells. Empty cells
// are stored as NaN.
type Table struct {
	Header []string
	Rows   [][]float64
}

// Matrix is a row-major float32 matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// Row returns the i-th row of the matrix.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// AsSequences reshapes (rows, cols) into single-channel sequences
// (rows, cols, 1). The underlying data is shared.
func (m Matrix) AsSequences() SequenceBatch {
	return SequenceBatch{Rows: int64(m.Rows), Steps: int64(m.Cols), Data: m.Data}
}

// Upload is a parsed CSV upload split into the model's feature matrix and the
// label column.
type Upload struct {
	Table    *Table
	Features Matrix
	// Labels holds the first column minus one for each row.
	Labels []float64
}

// ParseUpload reads a CSV stream whose first column is a label and whose
// remaining columns are numeric features.
func ParseUpload(data io.Reader) (*Upload, error) {
	table, err := ParseTable(data)
	if err != nil {
		return nil, err
	}

	return &Upload{
		Table:    table,
		Features: table.Features(),
		Labels:   table.Labels(),
	}, nil
}

// ParseTable reads a header row and numeric records. Structural CSV errors are
// KindValidation; empty input, too few columns and non numeric cells are
// KindProcessing.
func ParseTable(data io.Reader) (*Table, error) {
	const op = "parse upload"

	reader := csv.NewReader(data)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, newError(KindProcessing, op, errors.New("no columns to parse from file"))
	}
	if err != nil {
		return nil, classifyReadError(op, err)
	}
	if len(header) < 2 {
		return nil, newError(KindProcessing, op, fmt.Errorf("expected a label column and at least one feature column, found %d columns", len(header)))
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	table := &Table{Header: header}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classifyReadError(op, err)
		}

		line, _ := reader.FieldPos(0)
		row := make([]float64, len(record))
		for i, field := range record {
			value, err := parseCell(field)
			if err != nil {
				return nil, newError(KindProcessing, op, fmt.Errorf("line %d, column '%s': %w", line, header[i], err))
			}
			row[i] = value
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func classifyReadError(op string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return newError(KindValidation, op, err)
	}
	return newError(KindProcessing, op, err)
}

func parseCell(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return math.NaN(), nil
	}
	value, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("non numeric value '%s'", field)
	}
	return value, nil
}

// Features returns every column except the first as a float32 matrix.
func (t *Table) Features() Matrix {
	cols := len(t.Header) - 1
	m := Matrix{Rows: len(t.Rows), Cols: cols, Data: make([]float32, 0, len(t.Rows)*cols)}
	for _, row := range t.Rows {
		for _, v := range row[1:] {
			m.Data = append(m.Data, float32(v))
		}
	}
	return m
}

// Labels returns the first column with one subtracted from each value.
// TODO: confirm with the model owners what the label offset encodes.
func (t *Table) Labels() []float64 {
	labels := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		labels[i] = row[0] - 1
	}
	return labels
}
