package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/finsight-labs/finsight/internal/domain"
)

const profilesTable = "user_profiles"

// BigQueryProfileRepository is the concrete implementation of
// ProfileRepository backed by the user_profiles table.
type BigQueryProfileRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryProfileRepository creates a repository with a shared BigQuery
// client for the given project and dataset.
func NewBigQueryProfileRepository(ctx context.Context, projectID, dataset string) (*BigQueryProfileRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryProfileRepository: creating client: %w", err)
	}
	return &BigQueryProfileRepository{client: client, dataset: dataset}, nil
}

// Close releases the underlying client connection.
func (r *BigQueryProfileRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertProfile creates a new user profile row.
func (r *BigQueryProfileRepository) InsertProfile(ctx context.Context, p *domain.UserProfile) error {
	row := &UserProfileRow{
		UserID:            p.ID,
		Email:             p.Email,
		Name:              p.Name,
		MonthlyIncome:     p.MonthlyIncome,
		FixedBills:        p.FixedBills,
		SavingsGoal:       p.SavingsGoal,
		TelegramConnected: p.TelegramConnected,
		CreatedTS:         time.Now(),
	}
	if p.TelegramUsername != "" {
		row.TelegramUsername = bigquery.NullString{StringVal: p.TelegramUsername, Valid: true}
	}
	if p.TelegramUserID != "" {
		row.TelegramUserID = bigquery.NullString{StringVal: p.TelegramUserID, Valid: true}
	}

	inserter := r.client.Dataset(r.dataset).Table(profilesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertProfile: inserting row: %w", err)
	}
	return nil
}

// GetProfile returns a profile by user id, or ErrNotFound.
func (r *BigQueryProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return r.queryOne(ctx, "GetProfile", "user_id", userID)
}

// GetProfileByEmail returns a profile by email, or ErrNotFound.
func (r *BigQueryProfileRepository) GetProfileByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return r.queryOne(ctx, "GetProfileByEmail", "email", email)
}

// UpdateProfile rewrites the mutable settings fields of a profile.
func (r *BigQueryProfileRepository) UpdateProfile(ctx context.Context, p *domain.UserProfile) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET name = @name,
		    monthly_income = @monthly_income,
		    fixed_bills = @fixed_bills,
		    savings_goal = @savings_goal
		WHERE user_id = @user_id
	`, r.dataset, profilesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: p.Name},
		{Name: "monthly_income", Value: p.MonthlyIncome},
		{Name: "fixed_bills", Value: p.FixedBills},
		{Name: "savings_goal", Value: p.SavingsGoal},
		{Name: "user_id", Value: p.ID},
	}
	return r.runDML(ctx, q, "UpdateProfile")
}

// SetTelegram updates the Telegram linkage fields of a profile. Disconnecting
// clears the username and Telegram user id.
func (r *BigQueryProfileRepository) SetTelegram(ctx context.Context, userID string, connected bool, username, telegramUserID string) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET telegram_connected = @connected,
		    telegram_username = @username,
		    telegram_user_id = @telegram_user_id
		WHERE user_id = @user_id
	`, r.dataset, profilesTable))

	var usernameVal, telegramIDVal interface{}
	if connected {
		usernameVal = username
		telegramIDVal = telegramUserID
	} else {
		usernameVal = bigquery.NullString{}
		telegramIDVal = bigquery.NullString{}
	}

	q.Parameters = []bigquery.QueryParameter{
		{Name: "connected", Value: connected},
		{Name: "username", Value: usernameVal},
		{Name: "telegram_user_id", Value: telegramIDVal},
		{Name: "user_id", Value: userID},
	}
	return r.runDML(ctx, q, "SetTelegram")
}

func (r *BigQueryProfileRepository) queryOne(ctx context.Context, op, column, value string) (*domain.UserProfile, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE %s = @value
		LIMIT 1
	`, r.dataset, profilesTable, column))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "value", Value: value},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: running query: %w", op, err)
	}

	var row UserProfileRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading row: %w", op, err)
	}
	return row.toDomain(), nil
}

func (r *BigQueryProfileRepository) runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
