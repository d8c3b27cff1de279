package csvimport

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ImportRow is a spreadsheet row decoded into logical fields
type ImportRow struct {
	Line           int
	SKU            string
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	HasPrice       bool
	VATType        string
	Appearance     string
	Functionality  string
	Boxed          string
	Color          string
	CloudLock      string
	AdditionalInfo string
	ItemGroup      string
	Identifier     string
	// Extra holds non-empty cells of unmapped columns
	Extra map[string]string
}

// MapOptions tunes row decoding
type MapOptions struct {
	// DefaultQuantity is used when the quantity column is absent or blank.
	// Zero means rows without a quantity are skipped.
	DefaultQuantity int
	// RequireIdentifier skips rows without an identifier
	RequireIdentifier bool
	// MaxErrors caps the collected row errors
	MaxErrors int
}

// MapResult is the outcome of MapRows
type MapResult struct {
	Rows    []ImportRow
	Skipped int
	Errors  *ErrorCollection
}

// MapRows decodes every table row. Rows without SKU or with a non-positive
// quantity are skipped and reported in Errors; they never fail the run.
func MapRows(t *Table, m ColumnMapping, opts MapOptions) *MapResult {
	res := &MapResult{Errors: NewErrorCollection(opts.MaxErrors)}
	unmapped := m.Unmapped()

	for _, row := range t.Rows {
		r, ok := mapRow(row, m, unmapped, opts, res.Errors)
		if !ok {
			res.Skipped++
			continue
		}
		res.Rows = append(res.Rows, r)
	}
	return res
}

func mapRow(row *Row, m ColumnMapping, unmapped []string, opts MapOptions, errs *ErrorCollection) (ImportRow, bool) {
	r := ImportRow{
		Line:           row.LineNumber,
		SKU:            strings.TrimSpace(m.Value(row, FieldSKU)),
		Name:           m.Value(row, FieldName),
		VATType:        m.Value(row, FieldVATType),
		Appearance:     m.Value(row, FieldAppearance),
		Functionality:  m.Value(row, FieldFunctionality),
		Boxed:          m.Value(row, FieldBoxed),
		Color:          m.Value(row, FieldColor),
		CloudLock:      m.Value(row, FieldCloudLock),
		AdditionalInfo: m.Value(row, FieldAdditionalInfo),
		ItemGroup:      m.Value(row, FieldItemGroup),
		Identifier:     strings.TrimSpace(m.Value(row, FieldIdentifier)),
	}

	if r.SKU == "" {
		errs.AddRequiredError(row.LineNumber, m.Header(FieldSKU))
		return r, false
	}
	if opts.RequireIdentifier && r.Identifier == "" {
		errs.AddRequiredError(row.LineNumber, m.Header(FieldIdentifier))
		return r, false
	}

	rawQty := m.Value(row, FieldQuantity)
	switch qty, ok := ParseQuantity(rawQty); {
	case rawQty == "" && opts.DefaultQuantity > 0:
		r.Quantity = opts.DefaultQuantity
	case !ok:
		errs.AddTypeError(row.LineNumber, m.Header(FieldQuantity), "integer", rawQty)
		return r, false
	case qty <= 0:
		errs.Add(NewRowError(row.LineNumber, m.Header(FieldQuantity), ErrCodeImportInvalidRange, "quantity must be positive"))
		return r, false
	default:
		r.Quantity = qty
	}

	if raw := m.Value(row, FieldUnitPrice); raw != "" {
		if price, ok := ParsePrice(raw); ok {
			r.UnitPrice, r.HasPrice = price, true
		} else {
			errs.AddTypeError(row.LineNumber, m.Header(FieldUnitPrice), "decimal", raw)
		}
	}

	for _, h := range unmapped {
		if v := row.Get(h); v != "" {
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[h] = v
		}
	}
	return r, true
}

// ParseQuantity reads an integer count. Spreadsheet exports may render
// integers as "3.0" or "3,0"; the fractional part is dropped. Counts
// outside the int32 range are rejected.
func ParseQuantity(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return 0, false
	}
	n := d.BigInt()
	if !n.IsInt64() || n.Int64() > math.MaxInt32 || n.Int64() < math.MinInt32 {
		return 0, false
	}
	return int(n.Int64()), true
}

// ParsePrice reads a money amount written with a dot or comma decimal
// separator, an optional currency sign and thousands spaces
func ParsePrice(raw string) (decimal.Decimal, bool) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
