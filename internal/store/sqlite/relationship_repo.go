package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"rivift-connect/internal/domain"
)

type RelationshipRepo struct {
	db *sql.DB
}

func NewRelationshipRepo(db *sql.DB) *RelationshipRepo {
	return &RelationshipRepo{db: db}
}

var _ domain.RelationshipRepository = (*RelationshipRepo)(nil)

// orderPair returns the identities in canonical (sorted) order, the
// form friendship rows are stored in.
func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func (r *RelationshipRepo) AreFriends(ctx context.Context, a, b string) (bool, error) {
	ua, ub := orderPair(a, b)
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM friendships WHERE user_a = ? AND user_b = ?
	`, ua, ub).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("are friends: %w", err)
	}
	return true, nil
}

// CreateRequest inserts the pending edge from -> to. The friendship and
// reciprocal-request checks share the insert's transaction, so
// interleaved sends in both directions cannot each persist a row.
func (r *RelationshipRepo) CreateRequest(ctx context.Context, from, to string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ua, ub := orderPair(from, to)
	var one int
	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM friendships WHERE user_a = ? AND user_b = ?
	`, ua, ub).Scan(&one)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("check friendship: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM friend_requests WHERE from_identity = ? AND to_identity = ?
	`, to, from).Scan(&one)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("check reciprocal request: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO friend_requests (from_identity, to_identity, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, from, to)
	if err != nil {
		return false, fmt.Errorf("insert request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

func (r *RelationshipRepo) DeleteRequest(ctx context.Context, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM friend_requests WHERE from_identity = ? AND to_identity = ?
	`, from, to)
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// AcceptRequest removes the pending request and inserts the friendship
// in a single transaction, so a crash mid-operation can never leave one
// side updated and the other not.
func (r *RelationshipRepo) AcceptRequest(ctx context.Context, requester, accepter string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM friend_requests WHERE from_identity = ? AND to_identity = ?
	`, requester, accepter)
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	// Interleaved sends may have created a request in each direction;
	// accepting converges the pair to a single friend edge.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM friend_requests WHERE from_identity = ? AND to_identity = ?
	`, accepter, requester); err != nil {
		return false, fmt.Errorf("delete reverse request: %w", err)
	}

	ua, ub := orderPair(requester, accepter)
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO friendships (user_a, user_b, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, ua, ub); err != nil {
		return false, fmt.Errorf("insert friendship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (r *RelationshipRepo) DeleteFriendship(ctx context.Context, a, b string) (bool, error) {
	ua, ub := orderPair(a, b)
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM friendships WHERE user_a = ? AND user_b = ?
	`, ua, ub)
	if err != nil {
		return false, fmt.Errorf("delete friendship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *RelationshipRepo) ListRelationships(ctx context.Context, identity string) (*domain.Relationships, error) {
	rel := &domain.Relationships{}

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_a, user_b FROM friendships WHERE user_a = ? OR user_b = ?
	`, identity, identity)
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		if a == identity {
			rel.Friends = append(rel.Friends, b)
		} else {
			rel.Friends = append(rel.Friends, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}

	rel.Requests, err = r.listRequestPeers(ctx, `
		SELECT from_identity FROM friend_requests WHERE to_identity = ? ORDER BY created_at ASC
	`, identity)
	if err != nil {
		return nil, err
	}

	rel.SentRequests, err = r.listRequestPeers(ctx, `
		SELECT to_identity FROM friend_requests WHERE from_identity = ? ORDER BY created_at ASC
	`, identity)
	if err != nil {
		return nil, err
	}

	return rel, nil
}

func (r *RelationshipRepo) listRequestPeers(ctx context.Context, query, identity string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		peers = append(peers, p)
	}
	return peers, rows.Err()
}
