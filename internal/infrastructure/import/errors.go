package csvimport

import (
	"errors"
	"fmt"
)

// Row-level problem codes reported back to the uploader
const (
	ErrCodeImportRequiredField = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidType   = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeImportInvalidRange  = "ERR_IMPORT_INVALID_RANGE"

	// ErrCodeImportMissingColumn rejects the whole file
	ErrCodeImportMissingColumn = "MISSING_COLUMN"
)

// defaultMaxRowErrors bounds the row errors kept per upload
const defaultMaxRowErrors = 100

// File-level failures. Decoding stops on any of them.
var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrInvalidFile       = errors.New("file cannot be read as a spreadsheet")
	ErrInvalidEncoding   = errors.New("invalid file encoding, expected UTF-8")
	ErrMissingHeader     = errors.New("file missing header row")
	ErrNoDataRows        = errors.New("file contains no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")
)

// RowError describes why a row was skipped or partially read. Row is the
// 1-based line in the uploaded sheet, header included.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
}

func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// ErrorCollection keeps the first limit row errors and counts the rest, so a
// broken sheet with thousands of lines still yields a bounded response.
type ErrorCollection struct {
	kept  []RowError
	limit int
	total int
}

// NewErrorCollection creates a collection; limit <= 0 uses the default
func NewErrorCollection(limit int) *ErrorCollection {
	if limit <= 0 {
		limit = defaultMaxRowErrors
	}
	return &ErrorCollection{kept: []RowError{}, limit: limit}
}

func (ec *ErrorCollection) Add(err RowError) {
	ec.total++
	if len(ec.kept) < ec.limit {
		ec.kept = append(ec.kept, err)
	}
}

// AddRequiredError records a missing mandatory value
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeImportRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddTypeError records a value that could not be parsed as expectedType
func (ec *ErrorCollection) AddTypeError(row int, column, expectedType, value string) {
	e := NewRowError(row, column, ErrCodeImportInvalidType, "expected "+expectedType)
	e.Value = value
	ec.Add(e)
}

// Errors returns the kept errors in row order
func (ec *ErrorCollection) Errors() []RowError { return ec.kept }

// TotalCount includes errors dropped past the limit
func (ec *ErrorCollection) TotalCount() int { return ec.total }

// IsTruncated reports whether errors were dropped
func (ec *ErrorCollection) IsTruncated() bool { return ec.total > ec.limit }

// ErrorSummary counts kept errors by code
func (ec *ErrorCollection) ErrorSummary() map[string]int {
	summary := make(map[string]int, 3)
	for _, e := range ec.kept {
		summary[e.Code]++
	}
	return summary
}
