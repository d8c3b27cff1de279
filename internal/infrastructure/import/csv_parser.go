package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a delimited text file into header-keyed rows
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	headers    []string
	headerMap  map[string]int
	currentRow int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter forces the field delimiter. By default it is sniffed from the
// header line among comma, semicolon and tab.
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes toggles lenient quote handling (default on)
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// NewCSVParser creates a parser. It strips a UTF-8 BOM and rejects empty or
// non UTF-8 input.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	p := &CSVParser{
		lazyQuotes: true,
		headerMap:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	buf := bufio.NewReaderSize(r, 64*1024)
	if bom, err := buf.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = buf.Discard(3)
	}

	head, err := buf.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(completeLines(head)) {
		return nil, ErrInvalidEncoding
	}
	if p.delimiter == 0 {
		p.delimiter = sniffDelimiter(head)
	}

	p.reader = csv.NewReader(buf)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = p.lazyQuotes
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// completeLines cuts the peek window after its last newline so a rune split
// by the window does not fail validation
func completeLines(b []byte) []byte {
	if idx := bytes.LastIndexByte(b, '\n'); idx >= 0 {
		return b[:idx]
	}
	return b
}

// sniffDelimiter picks the most frequent candidate in the first line
func sniffDelimiter(head []byte) rune {
	line := head
	if idx := bytes.IndexByte(head, '\n'); idx >= 0 {
		line = head[:idx]
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// Delimiter returns the delimiter in use
func (p *CSVParser) Delimiter() rune {
	return p.delimiter
}

// ParseHeader reads the header row. Blank leading lines are skipped by encoding/csv.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	nonEmpty := 0
	for i, h := range record {
		h = strings.TrimSpace(h)
		p.headers[i] = h
		if h != "" {
			nonEmpty++
			if _, dup := p.headerMap[h]; !dup {
				p.headerMap[h] = i
			}
		}
	}
	if nonEmpty == 0 {
		return ErrMissingHeader
	}
	p.currentRow = 1
	return nil
}

// Headers returns the parsed header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a header exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// ReadRow reads the next row
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	return newRow(p.currentRow, p.headers, record), nil
}

// ReadTable reads the header and every non-empty row
func (p *CSVParser) ReadTable() (*Table, error) {
	if p.headers == nil {
		if err := p.ParseHeader(); err != nil {
			return nil, err
		}
	}
	t := &Table{Headers: p.headers}
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// CSVReader is the TableReader for delimited text
type CSVReader struct {
	opts []ParserOption
}

// NewCSVReader creates a CSV table reader
func NewCSVReader(opts ...ParserOption) *CSVReader {
	return &CSVReader{opts: opts}
}

// ReadTable implements TableReader
func (c *CSVReader) ReadTable(r io.Reader) (*Table, error) {
	p, err := NewCSVParser(r, c.opts...)
	if err != nil {
		return nil, err
	}
	return p.ReadTable()
}
