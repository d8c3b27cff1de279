package csvimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the first worksheet of an Office Open XML workbook
type XLSXReader struct {
	sheet string
}

// XLSXOption configures an XLSXReader
type XLSXOption func(*XLSXReader)

// WithSheet reads the named sheet instead of the first one
func WithSheet(name string) XLSXOption {
	return func(x *XLSXReader) {
		x.sheet = name
	}
}

// NewXLSXReader creates an xlsx table reader
func NewXLSXReader(opts ...XLSXOption) *XLSXReader {
	x := &XLSXReader{}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ReadTable implements TableReader. The first row with a non-blank cell is the header.
func (x *XLSXReader) ReadTable(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer func() { _ = f.Close() }()

	sheet := x.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	headerIdx := -1
	for i, rec := range records {
		if !blankRecord(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	t := &Table{Headers: headers}
	for i := headerIdx + 1; i < len(records); i++ {
		row := newRow(i+1, headers, records[i])
		if row.IsEmpty() {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
