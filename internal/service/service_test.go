package service_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"rivift-connect/internal/domain"
	"rivift-connect/internal/service"
	"rivift-connect/internal/store/sqlite"
)

// env bundles the services under test over an in-memory store.
type env struct {
	db    *sql.DB
	users *service.UserService
	rels  *service.RelationshipService
	convs *service.ConversationService

	userRepo domain.UserRepository
	relRepo  domain.RelationshipRepository
	msgRepo  domain.MessageRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	// The in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, sqlite.Migrate(db))

	userRepo := sqlite.NewUserRepo(db)
	relRepo := sqlite.NewRelationshipRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	return &env{
		db:       db,
		users:    service.NewUserService(userRepo, relRepo, msgRepo),
		rels:     service.NewRelationshipService(relRepo, msgRepo, userRepo),
		convs:    service.NewConversationService(relRepo, msgRepo, 50),
		userRepo: userRepo,
		relRepo:  relRepo,
		msgRepo:  msgRepo,
	}
}

func (e *env) createUser(t *testing.T, identity string) {
	t.Helper()
	err := e.userRepo.Create(context.Background(), &domain.User{
		Identity:       identity,
		DisplayName:    identity,
		HashedPassword: "x",
	})
	require.NoError(t, err)
}

func (e *env) makeFriends(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	changed, err := e.rels.SendRequest(ctx, a, b)
	require.NoError(t, err)
	require.True(t, changed)
	changed, err = e.rels.AcceptRequest(ctx, b, a)
	require.NoError(t, err)
	require.True(t, changed)
}
