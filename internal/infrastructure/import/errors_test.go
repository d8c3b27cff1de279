package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError(t *testing.T) {
	assert.Equal(t, "row 5, column 'Quantité': quantity must be positive",
		NewRowError(5, "Quantité", ErrCodeImportInvalidRange, "quantity must be positive").Error())
	assert.Equal(t, "row 10: missing SKU",
		NewRowError(10, "", ErrCodeImportRequiredField, "missing SKU").Error())
}

func TestErrorCollection(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		ec := NewErrorCollection(10)
		ec.AddRequiredError(2, "SKU")
		ec.AddTypeError(3, "Prix", "decimal", "abc")

		assert.Len(t, ec.Errors(), 2)
		assert.False(t, ec.IsTruncated())
		assert.Equal(t, "abc", ec.Errors()[1].Value)
		assert.Equal(t, "field 'SKU' is required", ec.Errors()[0].Message)
		assert.Equal(t, map[string]int{ErrCodeImportRequiredField: 1, ErrCodeImportInvalidType: 1}, ec.ErrorSummary())
	})

	t.Run("exceeding limit", func(t *testing.T) {
		ec := NewErrorCollection(3)
		for i := 1; i <= 5; i++ {
			ec.AddRequiredError(i, "SKU")
		}
		assert.Len(t, ec.Errors(), 3)
		assert.Equal(t, 5, ec.TotalCount())
		assert.True(t, ec.IsTruncated())
		assert.Equal(t, 3, ec.Errors()[2].Row)
	})

	t.Run("default limit", func(t *testing.T) {
		ec := NewErrorCollection(0)
		assert.Empty(t, ec.Errors())
		for i := 0; i < 150; i++ {
			ec.AddRequiredError(i, "SKU")
		}
		assert.Len(t, ec.Errors(), defaultMaxRowErrors)
	})
}
