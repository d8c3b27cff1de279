package trade

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "draft"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusShipping       OrderStatus = "shipping"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// AllOrderStatuses lists every status in lifecycle order
var AllOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPendingPayment,
	OrderStatusShipping,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// StatusLabel is the bilingual display label of a status
type StatusLabel struct {
	FR string `json:"fr"`
	EN string `json:"en"`
}

var statusLabels = map[OrderStatus]StatusLabel{
	OrderStatusDraft:          {FR: "Brouillon", EN: "Draft"},
	OrderStatusPendingPayment: {FR: "En attente de paiement", EN: "Pending payment"},
	OrderStatusShipping:       {FR: "En cours de livraison", EN: "Shipping"},
	OrderStatusCompleted:      {FR: "Terminée", EN: "Completed"},
	OrderStatusCancelled:      {FR: "Annulée", EN: "Cancelled"},
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// Label returns the bilingual label. Unknown statuses echo the raw value.
func (s OrderStatus) Label() StatusLabel {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return StatusLabel{FR: string(s), EN: string(s)}
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusPendingPayment || target == OrderStatusCancelled
	case OrderStatusPendingPayment:
		return target == OrderStatusShipping || target == OrderStatusCancelled
	case OrderStatusShipping:
		// back to pending_payment when serialized units are removed for re-import
		return target == OrderStatusCompleted || target == OrderStatusCancelled || target == OrderStatusPendingPayment
	case OrderStatusCompleted, OrderStatusCancelled:
		return false
	}
	return false
}
