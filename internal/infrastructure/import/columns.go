package csvimport

import (
	"strings"
	"unicode"

	"github.com/dbcb2b/backend/internal/domain/shared"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a logical spreadsheet column
type Field string

const (
	FieldSKU            Field = "sku"
	FieldName           Field = "product_name"
	FieldQuantity       Field = "quantity"
	FieldUnitPrice      Field = "unit_price"
	FieldVATType        Field = "vat_type"
	FieldAppearance     Field = "appearance"
	FieldFunctionality  Field = "functionality"
	FieldBoxed          Field = "boxed"
	FieldColor          Field = "color"
	FieldCloudLock      Field = "cloud_lock"
	FieldAdditionalInfo Field = "additional_info"
	FieldItemGroup      Field = "item_group"
	FieldIdentifier     Field = "identifier"
)

// DefaultFieldOrder is the detection order. A column claimed by an earlier
// field is not offered to later ones.
var DefaultFieldOrder = []Field{
	FieldSKU,
	FieldIdentifier,
	FieldQuantity,
	FieldUnitPrice,
	FieldVATType,
	FieldAppearance,
	FieldFunctionality,
	FieldBoxed,
	FieldColor,
	FieldCloudLock,
	FieldAdditionalInfo,
	FieldItemGroup,
	FieldName,
}

// DefaultSynonyms lists, per field, the header spellings seen in supplier and
// client files, most specific first
var DefaultSynonyms = map[Field][]string{
	FieldSKU:            {"sku", "ean", "code produit", "product code", "code"},
	FieldName:           {"product name", "nom du produit", "product_name", "nom", "name", "description"},
	FieldQuantity:       {"quantity", "quantite", "qty", "qte", "required count", "nb"},
	FieldUnitPrice:      {"unit price", "prix unitaire", "offered price", "unit_price", "prix", "price", "cout", "cost"},
	FieldVATType:        {"vat type", "vat margin", "vat_type", "tva", "vat"},
	FieldAppearance:     {"appearance", "grade", "apparence"},
	FieldFunctionality:  {"functionality", "fonctionnalite"},
	FieldBoxed:          {"boxed", "boite"},
	FieldColor:          {"color", "colour", "couleur"},
	FieldCloudLock:      {"cloud lock", "icloud", "cloud"},
	FieldAdditionalInfo: {"additional info", "additional", "info", "note", "remarque"},
	FieldItemGroup:      {"item group", "categorie", "category"},
	FieldIdentifier:     {"item identifier", "imei", "identifier", "serial"},
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s, strips diacritics and collapses separators into single
// spaces, so "Quantité" and "quantite" compare equal
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.Join(tokens(folded), " ")
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matches applies substring matching, except for synonyms of three characters
// or less which must equal a whole header word ("nb" must not hit "unboxed")
func matches(header, synonym string) bool {
	if header == "" || synonym == "" {
		return false
	}
	if len(synonym) > 3 {
		return strings.Contains(header, synonym)
	}
	for _, tok := range strings.Split(header, " ") {
		if tok == synonym {
			return true
		}
	}
	return false
}

// ColumnDetector maps headers to logical fields
type ColumnDetector struct {
	order    []Field
	synonyms map[Field][]string
}

// NewColumnDetector creates a detector with the default synonyms. extra adds
// synonyms per field, tried after the defaults.
func NewColumnDetector(extra map[Field][]string) *ColumnDetector {
	syn := make(map[Field][]string, len(DefaultSynonyms))
	for f, list := range DefaultSynonyms {
		syn[f] = foldAll(list)
	}
	for f, list := range extra {
		syn[f] = append(syn[f], foldAll(list)...)
	}
	return &ColumnDetector{order: DefaultFieldOrder, synonyms: syn}
}

func foldAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = Fold(s)
	}
	return out
}

// Detect assigns at most one header to each field. For a field, synonyms are
// tried in order and the first header matching wins.
func (d *ColumnDetector) Detect(headers []string) ColumnMapping {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = Fold(h)
	}

	m := ColumnMapping{headers: headers, index: make(map[Field]int)}
	claimed := make(map[int]bool)
	for _, f := range d.order {
	search:
		for _, syn := range d.synonyms[f] {
			for i, h := range folded {
				if !claimed[i] && matches(h, syn) {
					m.index[f] = i
					claimed[i] = true
					break search
				}
			}
		}
	}
	return m
}

// ColumnMapping is the outcome of header detection
type ColumnMapping struct {
	headers []string
	index   map[Field]int
}

// Has reports whether f was detected
func (m ColumnMapping) Has(f Field) bool {
	_, ok := m.index[f]
	return ok
}

// Header returns the original header detected for f
func (m ColumnMapping) Header(f Field) string {
	if i, ok := m.index[f]; ok {
		return m.headers[i]
	}
	return ""
}

// Fields returns the detected field to header pairs
func (m ColumnMapping) Fields() map[Field]string {
	out := make(map[Field]string, len(m.index))
	for f, i := range m.index {
		out[f] = m.headers[i]
	}
	return out
}

// Unmapped returns headers not claimed by any field, in file order
func (m ColumnMapping) Unmapped() []string {
	claimed := make(map[int]bool, len(m.index))
	for _, i := range m.index {
		claimed[i] = true
	}
	var out []string
	for i, h := range m.headers {
		if h != "" && !claimed[i] {
			out = append(out, h)
		}
	}
	return out
}

// Value returns the cell of row for f, or "" when f is not mapped
func (m ColumnMapping) Value(row *Row, f Field) string {
	if i, ok := m.index[f]; ok {
		return row.Get(m.headers[i])
	}
	return ""
}

// Require returns a guard violation naming every missing field
func (m ColumnMapping) Require(fields ...Field) error {
	var offenders []shared.Offender
	for _, f := range fields {
		if !m.Has(f) {
			offenders = append(offenders, shared.Offender{Key: string(f), Reason: "column not found"})
		}
	}
	if len(offenders) > 0 {
		return shared.NewGuardViolation(ErrCodeImportMissingColumn, "Required columns missing", offenders)
	}
	return nil
}
