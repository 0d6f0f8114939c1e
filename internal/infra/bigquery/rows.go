package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/finsight-labs/finsight/internal/domain"
)

// TransactionRow is the BigQuery representation of a transaction in the
// transactions table. Amount is stored as a non-negative FLOAT64; callers
// normalize with the absolute value before insert.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID string `bigquery:"user_id"` // REQUIRED

	Merchant    string  `bigquery:"merchant"`    // REQUIRED
	Amount      float64 `bigquery:"amount"`      // REQUIRED, non-negative
	Category    string  `bigquery:"category"`    // REQUIRED
	Description string  `bigquery:"description"` // NULLABLE

	TxnDate time.Time `bigquery:"txn_date"` // REQUIRED

	AICategorized   bool   `bigquery:"ai_categorized"`
	ReceiptImageURL string `bigquery:"receipt_image_url"` // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// UserProfileRow is the BigQuery representation of a row in the user_profiles
// table.
type UserProfileRow struct {
	UserID string `bigquery:"user_id"` // REQUIRED

	Email string `bigquery:"email"`
	Name  string `bigquery:"name"`

	MonthlyIncome float64 `bigquery:"monthly_income"`
	FixedBills    float64 `bigquery:"fixed_bills"`
	SavingsGoal   float64 `bigquery:"savings_goal"`

	TelegramConnected bool                `bigquery:"telegram_connected"`
	TelegramUsername  bigquery.NullString `bigquery:"telegram_username"` // NULLABLE
	TelegramUserID    bigquery.NullString `bigquery:"telegram_user_id"`  // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"`
}

// toDomain maps a row into the domain struct served by the API.
func (r *TransactionRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:              r.TransactionID,
		UserID:          r.UserID,
		Merchant:        r.Merchant,
		Amount:          r.Amount,
		Category:        domain.Category(r.Category),
		Description:     r.Description,
		Date:            r.TxnDate,
		AICategorized:   r.AICategorized,
		ReceiptImageURL: r.ReceiptImageURL,
		CreatedAt:       r.CreatedTS,
	}
}

func transactionRowFromDomain(t *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   t.ID,
		UserID:          t.UserID,
		Merchant:        t.Merchant,
		Amount:          t.Amount,
		Category:        string(t.Category),
		Description:     t.Description,
		TxnDate:         t.Date,
		AICategorized:   t.AICategorized,
		ReceiptImageURL: t.ReceiptImageURL,
		CreatedTS:       t.CreatedAt,
	}
}

func (r *UserProfileRow) toDomain() *domain.UserProfile {
	p := &domain.UserProfile{
		ID:                r.UserID,
		Email:             r.Email,
		Name:              r.Name,
		MonthlyIncome:     r.MonthlyIncome,
		FixedBills:        r.FixedBills,
		SavingsGoal:       r.SavingsGoal,
		TelegramConnected: r.TelegramConnected,
	}
	if r.TelegramUsername.Valid {
		p.TelegramUsername = r.TelegramUsername.StringVal
	}
	if r.TelegramUserID.Valid {
		p.TelegramUserID = r.TelegramUserID.StringVal
	}
	return p
}
