// Package transfer issues short-lived, single-use tokens that carry a room id
// and identity across page navigation. Game sessions never read them.
package transfer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage"
)

// Config holds configuration for the transfer service
type Config struct {
	TokenTTL time.Duration
}

// DefaultConfig returns default transfer configuration
func DefaultConfig() Config {
	return Config{
		TokenTTL: 5 * time.Minute,
	}
}

// Service issues and redeems transfer tokens
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	ttl     time.Duration
}

// New creates a new transfer Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "transfer")),
		ttl:     cfg.TokenTTL,
	}
}

// Issue creates a token for an identity. Callers verify room membership first.
func (s *Service) Issue(ctx context.Context, roomID model.RoomID, identity string) (*model.TransferToken, error) {
	now := s.clock.Now()
	token := &model.TransferToken{
		Token:     uuid.NewString(),
		RoomID:    roomID,
		Identity:  identity,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.storage.SaveTransferToken(ctx, token); err != nil {
		return nil, err
	}
	s.logger.Debug("transfer token issued",
		slog.String("room", string(roomID)),
		slog.String("identity", identity))
	return token, nil
}

// Redeem consumes a token. Unknown, used and expired tokens are all invalid.
func (s *Service) Redeem(ctx context.Context, token string) (*model.TransferToken, error) {
	if token == "" {
		return nil, model.ErrTransferTokenInvalid
	}
	t, err := s.storage.ConsumeTransferToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.clock.Now().Before(t.ExpiresAt) {
		return nil, model.ErrTransferTokenInvalid
	}
	return t, nil
}
