package service

import (
	"context"
	"fmt"

	"rivift-connect/internal/domain"
)

// Presence answers live-status queries; satisfied by the websocket
// presence registry.
type Presence interface {
	IsOnline(identity string) bool
}

// UserService provides profile operations and the pull-based sync query
// clients use to reconcile state after reconnecting.
type UserService struct {
	users         domain.UserRepository
	relationships domain.RelationshipRepository
	messages      domain.MessageRepository
}

func NewUserService(
	users domain.UserRepository,
	relationships domain.RelationshipRepository,
	messages domain.MessageRepository,
) *UserService {
	return &UserService{
		users:         users,
		relationships: relationships,
		messages:      messages,
	}
}

func (s *UserService) Get(ctx context.Context, identity string) (*domain.User, error) {
	return s.users.Get(ctx, identity)
}

func (s *UserService) UpdateProfile(ctx context.Context, identity string, upd domain.ProfileUpdate) error {
	return s.users.UpdateProfile(ctx, identity, upd)
}

// FriendEntry is one friend in the sync payload: public profile plus
// live status and unread count for the shared conversation.
type FriendEntry struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
	Online      bool   `json:"online"`
	UnreadCount int    `json:"unread_count"`
}

// SyncResponse is the reconciliation payload. Notifications to offline
// identities are dropped, so this query is how a client catches up.
type SyncResponse struct {
	Friends      []FriendEntry `json:"friends"`
	Requests     []string      `json:"requests"`
	SentRequests []string      `json:"sent_requests"`
}

func (s *UserService) Sync(ctx context.Context, identity string, presence Presence) (*SyncResponse, error) {
	rel, err := s.relationships.ListRelationships(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}

	resp := &SyncResponse{
		Friends:      []FriendEntry{},
		Requests:     rel.Requests,
		SentRequests: rel.SentRequests,
	}
	if resp.Requests == nil {
		resp.Requests = []string{}
	}
	if resp.SentRequests == nil {
		resp.SentRequests = []string{}
	}

	friends, err := s.users.Find(ctx, rel.Friends)
	if err != nil {
		return nil, fmt.Errorf("find friends: %w", err)
	}
	for _, f := range friends {
		unread, err := s.messages.UnreadCount(ctx, domain.ConversationKey(identity, f.Identity), identity)
		if err != nil {
			return nil, fmt.Errorf("unread count for %s: %w", f.Identity, err)
		}
		resp.Friends = append(resp.Friends, FriendEntry{
			Identity:    f.Identity,
			DisplayName: f.DisplayName,
			Icon:        f.Icon,
			PublicKey:   f.PublicKey,
			Online:      presence.IsOnline(f.Identity),
			UnreadCount: unread,
		})
	}

	return resp, nil
}
