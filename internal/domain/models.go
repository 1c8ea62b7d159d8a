package domain

import "time"

// User is a registered identity. The identity string (an email address)
// is the primary key everywhere; there is no separate numeric id. The
// key material fields are opaque blobs supplied by the client and the
// server never interprets them.
type User struct {
	Identity            string    `json:"identity"`
	DisplayName         string    `json:"display_name"`
	Icon                string    `json:"icon,omitempty"`
	PublicKey           string    `json:"public_key,omitempty"`
	EncryptedPrivateKey string    `json:"-"`
	HashedPassword      string    `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
}

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string
	Icon        *string
}

// Relationships is one identity's view of the friend graph.
// Invariants: friendship is symmetric, and B appears in SentRequests(A)
// exactly when A appears in Requests(B).
type Relationships struct {
	Friends      []string `json:"friends"`
	Requests     []string `json:"requests"`      // incoming, pending
	SentRequests []string `json:"sent_requests"` // outgoing, pending
}

// Message is one entry in a conversation log. Body carries ciphertext,
// or the tombstone once soft-deleted. Seq is the store-assigned order;
// client clocks are never trusted for ordering.
type Message struct {
	Seq             int64     `json:"seq"`
	ID              string    `json:"id"`
	ConversationKey string    `json:"-"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"timestamp"`
	Read            bool      `json:"read"`
	Deleted         bool      `json:"deleted"`
}

// Tombstone replaces the body of a soft-deleted message.
const Tombstone = "[deleted]"

// ConversationKey returns the canonical key for a pair of identities:
// sorted and joined, so both participants address the same conversation
// regardless of who initiates.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
