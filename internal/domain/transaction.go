package domain

import (
	"time"
)

// Transaction represents one stored expense. This is a domain struct, not a
// BigQuery row; the infra layer maps it into the transactions table schema.
// Amount is always the non-negative magnitude: sign (expense vs. income) is a
// display convention, so callers normalize with the absolute value before
// persisting.
type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Merchant      string    `json:"merchant"`
	Amount        float64   `json:"amount"`
	Category      Category  `json:"category"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
	AICategorized bool      `json:"ai_categorized"`

	// ReceiptImageURL points at the stored receipt image when the
	// transaction was created from one; empty for manual entries.
	ReceiptImageURL string `json:"receipt_image_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// UserProfile holds a user's account and budgeting settings. Created at
// sign-up with zeroed financial fields; mutated via settings edits and
// Telegram connect/disconnect.
type UserProfile struct {
	ID                string  `json:"id"`
	Email             string  `json:"email"`
	Name              string  `json:"name"`
	MonthlyIncome     float64 `json:"monthly_income"`
	FixedBills        float64 `json:"fixed_bills"`
	SavingsGoal       float64 `json:"savings_goal"`
	TelegramConnected bool    `json:"telegram_connected"`
	TelegramUsername  string  `json:"telegram_username,omitempty"`
	TelegramUserID    string  `json:"telegram_user_id,omitempty"`
}
