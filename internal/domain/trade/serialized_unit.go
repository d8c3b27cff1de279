package trade

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Defaults for unit attributes missing from the upload
const (
	DefaultUnitAppearance    = "Grade A"
	DefaultUnitFunctionality = "100%"
	DefaultUnitBoxed         = "Non renseigné"
)

// ErrUnitsAlreadyAttached is returned when an order already carries serialized units
var ErrUnitsAlreadyAttached = shared.NewDomainError("UNITS_ALREADY_ATTACHED", "Serialized units are already attached to this order")

// SerializedUnit is one physical device shipped against an order line
type SerializedUnit struct {
	ID             uuid.UUID
	OrderItemID    uuid.UUID
	SKU            string
	IMEI           string
	ProductName    string
	Appearance     string
	Functionality  string
	Boxed          string
	Color          string
	CloudLock      string
	AdditionalInfo string
	SupplierPrice  decimal.Decimal
	ResalePrice    decimal.Decimal
	CreatedAt      time.Time
}

// UnitLine is one row of a serialized-unit upload
type UnitLine struct {
	SKU            string
	Identifier     string
	Appearance     string
	Functionality  string
	Boxed          string
	Color          string
	CloudLock      string
	AdditionalInfo string
	SupplierPrice  decimal.Decimal
}

// MatchUnits checks that the upload covers the order lines exactly, SKU by
// SKU. Every line SKU must appear exactly Quantity times, no other SKU may
// appear, and identifiers must be unique. All offenders are reported at once.
// On success the upload is returned grouped by SKU in upload order.
func MatchUnits(items []OrderItem, upload []UnitLine) (map[string][]UnitLine, error) {
	groups := make(map[string][]UnitLine, len(items))
	seen := make(map[string]string, len(upload))
	var duplicates []shared.Offender
	for _, u := range upload {
		sku := strings.TrimSpace(u.SKU)
		id := strings.TrimSpace(u.Identifier)
		if prev, dup := seen[id]; dup {
			duplicates = append(duplicates, shared.Offender{Key: id, Reason: fmt.Sprintf("identifier listed twice (%s, %s)", prev, sku)})
			continue
		}
		seen[id] = sku
		u.SKU, u.Identifier = sku, id
		groups[sku] = append(groups[sku], u)
	}
	if len(duplicates) > 0 {
		return nil, shared.NewGuardViolation("DUPLICATE_IDENTIFIER", "Serialized unit import rejected", duplicates)
	}

	var offenders []shared.Offender
	ordered := make(map[string]struct{}, len(items))
	for _, item := range items {
		ordered[item.SKU] = struct{}{}
		if found := len(groups[item.SKU]); found != item.Quantity {
			offenders = append(offenders, shared.Offender{Key: item.SKU, Expected: item.Quantity, Found: found})
		}
	}

	var extra []string
	for sku := range groups {
		if _, ok := ordered[sku]; !ok {
			extra = append(extra, sku)
		}
	}
	sort.Strings(extra)
	for _, sku := range extra {
		offenders = append(offenders, shared.Offender{Key: sku, Expected: 0, Found: len(groups[sku]), Reason: fmt.Sprintf("not in order, found %d", len(groups[sku]))})
	}

	if len(offenders) > 0 {
		return nil, shared.NewGuardViolation("UNIT_COUNT_MISMATCH", "Serialized unit import rejected", offenders)
	}
	return groups, nil
}

// BuildUnits turns matched upload groups into units bound to their order
// lines. The resale price of each unit is the line's unit price.
func BuildUnits(order *Order, groups map[string][]UnitLine) []SerializedUnit {
	now := time.Now()
	units := make([]SerializedUnit, 0, order.TotalItems)
	for _, item := range order.Items {
		for _, u := range groups[item.SKU] {
			units = append(units, SerializedUnit{
				ID:             uuid.New(),
				OrderItemID:    item.ID,
				SKU:            item.SKU,
				IMEI:           u.Identifier,
				ProductName:    item.ProductName,
				Appearance:     orDefault(u.Appearance, DefaultUnitAppearance),
				Functionality:  orDefault(u.Functionality, DefaultUnitFunctionality),
				Boxed:          orDefault(u.Boxed, DefaultUnitBoxed),
				Color:          u.Color,
				CloudLock:      u.CloudLock,
				AdditionalInfo: u.AdditionalInfo,
				SupplierPrice:  u.SupplierPrice,
				ResalePrice:    item.UnitPrice,
				CreatedAt:      now,
			})
		}
	}
	return units
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
