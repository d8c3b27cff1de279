package csvimport

import (
	"bytes"
	"io"
)

// DecodeOptions configures Decode
type DecodeOptions struct {
	MapOptions
	// Required fields must be detected in the header row
	Required []Field
	// Synonyms adds header synonyms per field
	Synonyms map[Field][]string
}

// Decoded is a fully read upload
type Decoded struct {
	Mapping ColumnMapping
	*MapResult
	TotalRows int
}

// Decode reads the table, detects columns, checks required fields and maps
// the rows
func Decode(filename string, data []byte, opts DecodeOptions) (*Decoded, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	return DecodeReader(filename, bytes.NewReader(data), opts)
}

// DecodeReader is Decode over a stream
func DecodeReader(filename string, r io.Reader, opts DecodeOptions) (*Decoded, error) {
	table, err := ReadFile(filename, r)
	if err != nil {
		return nil, err
	}
	mapping := NewColumnDetector(opts.Synonyms).Detect(table.Headers)
	if err := mapping.Require(opts.Required...); err != nil {
		return nil, err
	}
	return &Decoded{
		Mapping:   mapping,
		MapResult: MapRows(table, mapping, opts.MapOptions),
		TotalRows: len(table.Rows),
	}, nil
}
