package buyer

// Kind discriminates between a registered customer and a guest checkout.
type Kind string

const (
	KindRegistered Kind = "registered"
	KindGuest      Kind = "guest"
)

// Buyer is the identity snapshot stored on an order. For a registered buyer
// the user id references the users table and the contact fields are copied
// from the user record at creation time. For a guest the contact fields come
// from the checkout form and UserID is zero.
type Buyer struct {
	Kind   Kind   `json:"kind"`
	UserID int64  `json:"userId,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// Registered builds a buyer snapshot for a known user.
func Registered(userID int64, name, email, phone string) Buyer {
	return Buyer{
		Kind:   KindRegistered,
		UserID: userID,
		Name:   name,
		Email:  email,
		Phone:  phone,
	}
}

// Guest builds a buyer snapshot from checkout contact info.
func Guest(name, email, phone string) Buyer {
	return Buyer{
		Kind:  KindGuest,
		Name:  name,
		Email: email,
		Phone: phone,
	}
}

// IsRegistered reports whether the buyer references a user account.
func (b Buyer) IsRegistered() bool {
	return b.Kind == KindRegistered
}
