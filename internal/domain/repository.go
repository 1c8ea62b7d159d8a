package domain

import "context"

// UserRepository defines persistence operations for user profiles and
// their opaque credential blobs.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, identity string) (*User, error)
	Find(ctx context.Context, identities []string) ([]*User, error)
	UpdateProfile(ctx context.Context, identity string, upd ProfileUpdate) error
}

// RelationshipRepository defines persistence operations for the friend
// graph. Mutations use set semantics so duplicate delivery of the same
// event is idempotent.
type RelationshipRepository interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
	// CreateRequest inserts the pending edge from -> to unless the pair
	// is already friends or a request exists in either direction. The
	// checks and the insert run in one transaction; returns whether a
	// row was inserted.
	CreateRequest(ctx context.Context, from, to string) (bool, error)
	DeleteRequest(ctx context.Context, from, to string) (bool, error)
	// AcceptRequest atomically removes the pending request and inserts
	// the symmetric friend edge. Returns false when no request existed.
	AcceptRequest(ctx context.Context, requester, accepter string) (bool, error)
	DeleteFriendship(ctx context.Context, a, b string) (bool, error)
	ListRelationships(ctx context.Context, identity string) (*Relationships, error)
}

// MessageRepository defines persistence operations for per-conversation
// message logs.
type MessageRepository interface {
	Append(ctx context.Context, m *Message) error
	Get(ctx context.Context, conversationKey, id string) (*Message, error)
	// MarkRead flips read on unread messages addressed to reader only.
	MarkRead(ctx context.Context, conversationKey, reader string) (int64, error)
	// SoftDelete tombstones the message when sender matches; returns
	// false without changing state otherwise.
	SoftDelete(ctx context.Context, conversationKey, id, sender string) (bool, error)
	DeleteConversation(ctx context.Context, conversationKey string) error
	// ListNewestFirst returns a page counted back from the newest
	// message, ordered newest to oldest by store-assigned sequence.
	ListNewestFirst(ctx context.Context, conversationKey string, limit, offset int) ([]*Message, error)
	UnreadCount(ctx context.Context, conversationKey, identity string) (int, error)
}
