package csvimport

import (
	"io"
	"path/filepath"
	"strings"
)

// Row is one data row keyed by header, with its 1-based line number
type Row struct {
	LineNumber int
	Data       map[string]string
	RawFields  []string
}

func newRow(line int, headers, record []string) *Row {
	row := &Row{
		LineNumber: line,
		Data:       make(map[string]string, len(headers)),
		RawFields:  record,
	}
	for i, h := range headers {
		if h == "" {
			continue
		}
		v := ""
		if i < len(record) {
			v = strings.TrimSpace(record[i])
		}
		if _, dup := row.Data[h]; !dup {
			row.Data[h] = v
		}
	}
	return row
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// GetOrDefault returns the value for a column, or def if absent or blank
func (r *Row) GetOrDefault(header, def string) string {
	if v, ok := r.Data[header]; ok && v != "" {
		return v
	}
	return def
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Table is a parsed spreadsheet: the header row and the non-empty data rows
type Table struct {
	Headers []string
	Rows    []*Row
}

// TableReader turns an uploaded file into a Table
type TableReader interface {
	ReadTable(r io.Reader) (*Table, error)
}

// Format is a supported upload format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat infers the upload format from the file name
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ReaderFor returns the TableReader matching the file name
func ReaderFor(filename string) (TableReader, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return NewXLSXReader(), nil
	}
	return NewCSVReader(), nil
}

// ReadFile parses r with the reader matching filename and rejects tables
// without data rows
func ReadFile(filename string, r io.Reader) (*Table, error) {
	reader, err := ReaderFor(filename)
	if err != nil {
		return nil, err
	}
	t, err := reader.ReadTable(r)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return t, nil
}
