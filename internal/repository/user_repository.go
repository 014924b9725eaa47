package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/meeting-admin/internal/model"
	"github.com/iliyamo/meeting-admin/internal/utils"
)

// UserRepo persists accounts and answers the directory queries the meeting
// surface needs: "does this id hold role R" and "list accounts holding role
// R" for the owner selector.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its id.
func (r *UserRepo) Create(ctx context.Context, email, fullName, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, full_name, password_hash, role) VALUES (?,?,?,?)",
		email, fullName, hash, role)
	if err != nil {
		// MySQL duplicate-key errors carry code 1062.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,full_name,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,full_name,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// HoldsRole reports whether an active account with the given id carries the
// given role. Used as the referential check before assigning meeting
// ownership.
func (r *UserRepo) HoldsRole(ctx context.Context, id uint64, role string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE id=? AND role=? AND is_active=1 LIMIT 1",
		id, role).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListOptionsByRole returns the (id, name) pairs of active accounts holding
// the given role, ordered by name. This backs the owner selector shown to
// admins.
func (r *UserRepo) ListOptionsByRole(ctx context.Context, role string) ([]model.UserOption, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, full_name FROM users WHERE role=? AND is_active=1 ORDER BY full_name",
		role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.UserOption, 0)
	for rows.Next() {
		var o model.UserOption
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
