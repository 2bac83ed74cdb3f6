package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/snowberry/order/internal/service/models/user"
)

// UserDal represents the user data access layer model.
type UserDal struct {
	Id    int64  `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Phone string `db:"phone"`
}

// ToModel converts UserDal to the service layer User model.
func (u *UserDal) ToModel() *user.User {
	return &user.User{
		ID:    u.Id,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
	}
}

type PostgresUserRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresUserRepository(conn sqlx.ExtContext) *PostgresUserRepository {
	return &PostgresUserRepository{
		conn: conn,
	}
}

// GetByID retrieves a user by id for the buyer snapshot.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, name, email, phone
		FROM users
		WHERE id = $1
	`

	var dal UserDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to select user: %w", err)
	}

	return dal.ToModel(), nil
}
