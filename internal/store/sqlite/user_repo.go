package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rivift-connect/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `identity, display_name, icon, public_key, encrypted_private_key, hashed_password, created_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (identity, display_name, icon, public_key, encrypted_private_key, hashed_password, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.Identity,
		u.DisplayName,
		u.Icon,
		u.PublicKey,
		u.EncryptedPrivateKey,
		u.HashedPassword,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, identity string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE identity = ?`
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, identity).Scan(
		&u.Identity,
		&u.DisplayName,
		&u.Icon,
		&u.PublicKey,
		&u.EncryptedPrivateKey,
		&u.HashedPassword,
		&u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) Find(ctx context.Context, identities []string) ([]*domain.User, error) {
	if len(identities) == 0 {
		return nil, nil
	}
	placeholders := "?" + strings.Repeat(",?", len(identities)-1)
	query := `SELECT ` + userColumns + ` FROM users WHERE identity IN (` + placeholders + `) ORDER BY identity ASC`
	args := make([]any, len(identities))
	for i, id := range identities {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.Identity,
			&u.DisplayName,
			&u.Icon,
			&u.PublicKey,
			&u.EncryptedPrivateKey,
			&u.HashedPassword,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) UpdateProfile(ctx context.Context, identity string, upd domain.ProfileUpdate) error {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if upd.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *upd.DisplayName)
	}
	if upd.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *upd.Icon)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, identity)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE identity = ?`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
