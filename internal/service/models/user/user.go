package user

import "errors"

var ErrUserNotFound = errors.New("user not found")

// User is the slice of the account record the order core snapshots onto
// registered orders. Authentication and account management are external.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
