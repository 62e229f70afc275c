package core

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"
)

const (
	WorkbookSheet       = "Sheet1"
	DirectionColumn     = "Direction"
	ProbabilityColumn   = "Probability"
	PositiveToken       = "True"
	NegativeToken       = "False"
	WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteWorkbook writes the table as an xlsx workbook with the predicted class
// and probability inserted as the two leading columns.
func WriteWorkbook(w io.Writer, table *Table, predictions []Prediction) error {
	const op = "write workbook"

	if len(predictions) != len(table.Rows) {
		return newError(KindProcessing, op, fmt.Errorf("have %d predictions for %d rows", len(predictions), len(table.Rows)))
	}

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(WorkbookSheet)
	if err != nil {
		return newError(KindProcessing, op, err)
	}

	header := make([]interface{}, 0, len(table.Header)+2)
	header = append(header, DirectionColumn, ProbabilityColumn)
	for _, name := range table.Header {
		header = append(header, name)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return newError(KindProcessing, op, err)
	}

	for i, row := range table.Rows {
		values := make([]interface{}, 0, len(row)+2)
		values = append(values, directionToken(predictions[i]), cellValue(predictions[i].Probability))
		for _, v := range row {
			values = append(values, cellValue(v))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return newError(KindProcessing, op, err)
		}
		if err := sw.SetRow(cell, values); err != nil {
			return newError(KindProcessing, op, fmt.Errorf("error writing row %d: %w", i+2, err))
		}
	}

	if err := sw.Flush(); err != nil {
		return newError(KindProcessing, op, err)
	}

	if err := f.Write(w); err != nil {
		return newError(KindProcessing, op, err)
	}

	return nil
}

func directionToken(p Prediction) string {
	if p.Positive {
		return PositiveToken
	}
	return NegativeToken
}

// cellValue leaves NaN and infinite values as empty cells.
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
