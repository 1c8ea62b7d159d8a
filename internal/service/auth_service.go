package service

import (
	"context"
	"fmt"
	"strings"

	"rivift-connect/internal/domain"
	"rivift-connect/internal/security"
)

// AuthService handles registration and login. The public key and the
// encrypted private key payload are opaque blobs the client manages;
// the server only stores and returns them.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Identity            string
	Password            string
	DisplayName         string
	PublicKey           string
	EncryptedPrivateKey string
}

type LoginInput struct {
	Identity string
	Password string
}

type TokenResponse struct {
	AccessToken         string
	TokenType           string
	User                *domain.User
	EncryptedPrivateKey string
}

// NormalizeIdentity canonicalizes an identity the way login and
// registration store it.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	identity := NormalizeIdentity(in.Identity)
	if identity == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if !strings.Contains(identity, "@") {
		return nil, domain.ErrInvalidInput
	}

	if existing, err := s.users.Get(ctx, identity); err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	} else if existing != nil {
		return nil, domain.ErrConflict
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = identity
	}

	user := &domain.User{
		Identity:            identity,
		DisplayName:         displayName,
		PublicKey:           in.PublicKey,
		EncryptedPrivateKey: in.EncryptedPrivateKey,
		HashedPassword:      hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	identity := NormalizeIdentity(in.Identity)
	user, err := s.users.Get(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := s.tokens.CreateForIdentity(user.Identity)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken:         token,
		TokenType:           "bearer",
		User:                user,
		EncryptedPrivateKey: user.EncryptedPrivateKey,
	}, nil
}
