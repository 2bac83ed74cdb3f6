package iuserrepo

import (
	"context"

	"github.com/snowberry/order/internal/service/models/user"
)

// IUserRepository looks up account records for buyer snapshots. The user
// service owns this data; the order core only reads it.
type IUserRepository interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}
