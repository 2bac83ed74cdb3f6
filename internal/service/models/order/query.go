package order

import "time"

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Ids     []int64 `json:"ids,omitempty"`
	Codes   []string `json:"codes,omitempty"`
	UserIds []int64 `json:"userIds,omitempty"`

	// Email and Phone together match the buyer contact snapshot, guest or
	// registered, for guest order tracking.
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	Statuses []Status `json:"statuses,omitempty"`

	// PaymentPendingBefore selects unpaid orders whose expiry deadline has
	// passed; used by the expiry sweep.
	PaymentPendingBefore time.Time `json:"paymentPendingBefore,omitzero"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
