package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rivift-connect/internal/domain"
)

// ConversationService owns the append-only per-pair message log. The
// server never reads message bodies; they are ciphertext end to end.
type ConversationService struct {
	relationships domain.RelationshipRepository
	messages      domain.MessageRepository

	historyPageSize int
}

func NewConversationService(
	relationships domain.RelationshipRepository,
	messages domain.MessageRepository,
	historyPageSize int,
) *ConversationService {
	return &ConversationService{
		relationships:   relationships,
		messages:        messages,
		historyPageSize: historyPageSize,
	}
}

// Append persists a message from -> to and returns it with the assigned
// id, sequence and timestamp. Returns (nil, nil) when the pair is not
// friends: the send is a silent no-op, not an error.
func (s *ConversationService) Append(ctx context.Context, from, to, body string) (*domain.Message, error) {
	if from == "" || to == "" || body == "" {
		return nil, domain.ErrInvalidInput
	}
	friends, err := s.relationships.AreFriends(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if !friends {
		return nil, nil
	}

	msg := &domain.Message{
		ID:              uuid.NewString(),
		ConversationKey: domain.ConversationKey(from, to),
		From:            from,
		To:              to,
		Body:            body,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead flips read on every unread message addressed to reader in
// the conversation with counterpart and returns how many flipped.
func (s *ConversationService) MarkRead(ctx context.Context, reader, counterpart string) (int64, error) {
	if reader == "" || counterpart == "" {
		return 0, domain.ErrInvalidInput
	}
	return s.messages.MarkRead(ctx, domain.ConversationKey(reader, counterpart), reader)
}

// SoftDelete tombstones a single message. Only the original sender may
// delete; anything else is a silent no-op reported as false.
func (s *ConversationService) SoftDelete(ctx context.Context, requester, counterpart, messageID string) (bool, error) {
	if requester == "" || counterpart == "" || messageID == "" {
		return false, domain.ErrInvalidInput
	}
	return s.messages.SoftDelete(ctx, domain.ConversationKey(requester, counterpart), messageID, requester)
}

// DeleteConversation irreversibly removes the whole log for the pair.
func (s *ConversationService) DeleteConversation(ctx context.Context, a, b string) error {
	return s.messages.DeleteConversation(ctx, domain.ConversationKey(a, b))
}

// History returns a chronological page. Pagination is bounded at the
// newest end: offset skips back from the most recent message, and the
// page comes back oldest-to-newest, ordered by store-assigned sequence.
func (s *ConversationService) History(ctx context.Context, a, b string, limit, offset int) ([]*domain.Message, error) {
	if limit <= 0 || limit > s.historyPageSize {
		limit = s.historyPageSize
	}
	if offset < 0 {
		offset = 0
	}
	msgs, err := s.messages.ListNewestFirst(ctx, domain.ConversationKey(a, b), limit, offset)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// UnreadCount counts messages addressed to identity in the shared
// conversation that are still unread.
func (s *ConversationService) UnreadCount(ctx context.Context, identity, counterpart string) (int, error) {
	return s.messages.UnreadCount(ctx, domain.ConversationKey(identity, counterpart), identity)
}
