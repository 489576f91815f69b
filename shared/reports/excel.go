package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelizeWriter renders workbooks through excelize stream writers. Each
// sheet is flushed when the next one starts, so memory stays flat however
// many payment rows a month accumulates.
type ExcelizeWriter struct {
	file        *excelize.File
	stream      *excelize.StreamWriter
	sheet       string
	row         int
	headerStyle int
}

// NewExcelizeWriter creates a writer backed by a fresh workbook.
func NewExcelizeWriter() ExcelWriter {
	return &ExcelizeWriter{
		file: excelize.NewFile(),
	}
}

// AddSheet flushes the sheet in progress and starts a new one.
func (w *ExcelizeWriter) AddSheet(name string) error {
	// Excel caps sheet names at 31 characters.
	if len(name) > 31 {
		name = name[:31]
	}

	if err := w.flush(); err != nil {
		return err
	}

	if w.sheet == "" {
		// Reuse the default sheet instead of leaving an empty Sheet1 behind.
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	stream, err := w.file.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("stream sheet %s: %w", name, err)
	}

	w.stream = stream
	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes a bold header row to the current sheet.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	if w.stream == nil {
		return fmt.Errorf("no active sheet")
	}

	style, err := w.boldStyle()
	if err != nil {
		return err
	}

	cells := make([]interface{}, len(columns))
	for i, col := range columns {
		cells[i] = excelize.Cell{StyleID: style, Value: col}
	}
	return w.setRow(cells)
}

// WriteRow appends a data row to the current sheet.
func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.stream == nil {
		return fmt.Errorf("no active sheet")
	}
	return w.setRow(row)
}

// Save flushes the last sheet and writes the workbook out.
func (w *ExcelizeWriter) Save(wr io.Writer) error {
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.file.Write(wr); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return w.file.Close()
}

func (w *ExcelizeWriter) setRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.stream.SetRow(cell, values); err != nil {
		return fmt.Errorf("write row %d on %s: %w", w.row, w.sheet, err)
	}
	w.row++
	return nil
}

func (w *ExcelizeWriter) flush() error {
	if w.stream == nil {
		return nil
	}
	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("flush sheet %s: %w", w.sheet, err)
	}
	w.stream = nil
	return nil
}

// boldStyle lazily builds the shared header style. Stream writers take
// styles by ID, so one style serves every sheet.
func (w *ExcelizeWriter) boldStyle() (int, error) {
	if w.headerStyle != 0 {
		return w.headerStyle, nil
	}
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return 0, fmt.Errorf("header style: %w", err)
	}
	w.headerStyle = style
	return style, nil
}
