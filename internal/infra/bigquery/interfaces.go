package bigquery

import (
	"context"
	"time"

	"github.com/finsight-labs/finsight/internal/domain"
)

// TransactionRepository defines the persistence operations for transactions.
// The API layer depends on this interface so tests can substitute an
// in-memory implementation.
type TransactionRepository interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error)
	ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]*domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// ProfileRepository defines the persistence operations for user profiles.
type ProfileRepository interface {
	InsertProfile(ctx context.Context, p *domain.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, p *domain.UserProfile) error
	SetTelegram(ctx context.Context, userID string, connected bool, username, telegramUserID string) error
}
