package service

import (
	"context"
	"fmt"

	"rivift-connect/internal/domain"
)

// RelationshipService enforces the friend-relationship state machine.
// Every operation is idempotent: replaying an event leaves the graph in
// the same state, and operations against a pair in the wrong state are
// silent no-ops (the returned bool reports whether anything changed).
type RelationshipService struct {
	relationships domain.RelationshipRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
}

func NewRelationshipService(
	relationships domain.RelationshipRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
) *RelationshipService {
	return &RelationshipService{
		relationships: relationships,
		messages:      messages,
		users:         users,
	}
}

// SendRequest records a pending request from -> to. No-op when the pair
// is already friends, either direction is already pending, the target
// does not exist, or from == to. The graph-state checks run in the
// repository inside the insert's transaction.
func (s *RelationshipService) SendRequest(ctx context.Context, from, to string) (bool, error) {
	if from == to {
		return false, nil
	}
	target, err := s.users.Get(ctx, to)
	if err != nil {
		return false, fmt.Errorf("get target: %w", err)
	}
	if target == nil {
		return false, nil
	}

	created, err := s.relationships.CreateRequest(ctx, from, to)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	return created, nil
}

// AcceptRequest turns the pending request requester -> accepter into a
// symmetric friend edge. No-op when no such request is pending.
func (s *RelationshipService) AcceptRequest(ctx context.Context, accepter, requester string) (bool, error) {
	return s.relationships.AcceptRequest(ctx, requester, accepter)
}

// RejectRequest drops the pending request requester -> rejecter without
// creating a friend edge.
func (s *RelationshipService) RejectRequest(ctx context.Context, rejecter, requester string) (bool, error) {
	return s.relationships.DeleteRequest(ctx, requester, rejecter)
}

// CancelRequest drops the caller's own pending request to target.
func (s *RelationshipService) CancelRequest(ctx context.Context, canceller, target string) (bool, error) {
	return s.relationships.DeleteRequest(ctx, canceller, target)
}

// DeleteFriend removes the symmetric edge and drops the shared
// conversation with it.
func (s *RelationshipService) DeleteFriend(ctx context.Context, a, b string) (bool, error) {
	removed, err := s.relationships.DeleteFriendship(ctx, a, b)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}
	if err := s.messages.DeleteConversation(ctx, domain.ConversationKey(a, b)); err != nil {
		return true, fmt.Errorf("delete conversation: %w", err)
	}
	return true, nil
}

// Relationships returns identity's friends and pending requests.
func (s *RelationshipService) Relationships(ctx context.Context, identity string) (*domain.Relationships, error) {
	return s.relationships.ListRelationships(ctx, identity)
}

// Friends returns just the friend set, used for presence fanout.
func (s *RelationshipService) Friends(ctx context.Context, identity string) ([]string, error) {
	rel, err := s.relationships.ListRelationships(ctx, identity)
	if err != nil {
		return nil, err
	}
	return rel.Friends, nil
}
