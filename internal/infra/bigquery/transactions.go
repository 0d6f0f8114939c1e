package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/finsight-labs/finsight/internal/domain"
)

const transactionsTable = "transactions"

// BigQueryTransactionRepository is the concrete implementation of
// TransactionRepository. It holds a shared BigQuery client to avoid creating
// a new connection for each operation.
type BigQueryTransactionRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryTransactionRepository creates a repository with a shared
// BigQuery client for the given project and dataset.
func NewBigQueryTransactionRepository(ctx context.Context, projectID, dataset string) (*BigQueryTransactionRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTransactionRepository: creating client: %w", err)
	}
	return &BigQueryTransactionRepository{client: client, dataset: dataset}, nil
}

// Close releases the underlying client connection.
func (r *BigQueryTransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertTransaction streams one transaction row into the transactions table.
func (r *BigQueryTransactionRepository) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	inserter := r.client.Dataset(r.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, transactionRowFromDomain(t)); err != nil {
		return fmt.Errorf("InsertTransaction: inserting row: %w", err)
	}
	return nil
}

// ListTransactions returns all transactions for a user, newest first.
func (r *BigQueryTransactionRepository) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE user_id = @user_id
		ORDER BY txn_date DESC
	`, r.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}
	return r.readTransactions(ctx, q, "ListTransactions")
}

// ListTransactionsSince returns a user's transactions dated at or after the
// given instant, newest first.
func (r *BigQueryTransactionRepository) ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]*domain.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE user_id = @user_id
		  AND txn_date >= @since
		ORDER BY txn_date DESC
	`, r.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "since", Value: since},
	}
	return r.readTransactions(ctx, q, "ListTransactionsSince")
}

// GetTransaction returns a single transaction by id, scoped to the owning
// user. Returns ErrNotFound when no such row exists.
func (r *BigQueryTransactionRepository) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
		LIMIT 1
	`, r.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	rows, err := r.readTransactions(ctx, q, "GetTransaction")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// UpdateTransaction rewrites the mutable fields of an existing transaction.
// Identity (transaction_id, user_id) never changes. Returns ErrNotFound when
// the row does not exist.
func (r *BigQueryTransactionRepository) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET merchant = @merchant,
		    amount = @amount,
		    category = @category,
		    description = @description,
		    txn_date = @txn_date,
		    updated_ts = @updated_ts
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
	`, r.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "merchant", Value: t.Merchant},
		{Name: "amount", Value: t.Amount},
		{Name: "category", Value: string(t.Category)},
		{Name: "description", Value: t.Description},
		{Name: "txn_date", Value: t.Date},
		{Name: "updated_ts", Value: time.Now()},
		{Name: "transaction_id", Value: t.ID},
		{Name: "user_id", Value: t.UserID},
	}

	n, err := r.runDML(ctx, q, "UpdateTransaction")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes a transaction by id, scoped to the owning user.
func (r *BigQueryTransactionRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	q := r.client.Query(fmt.Sprintf(`
		DELETE FROM %s.%s
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
	`, r.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	n, err := r.runDML(ctx, q, "DeleteTransaction")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// readTransactions executes a query and collects the resulting rows.
func (r *BigQueryTransactionRepository) readTransactions(ctx context.Context, q *bigquery.Query, op string) ([]*domain.Transaction, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: running query: %w", op, err)
	}

	var result []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading row: %w", op, err)
		}
		result = append(result, row.toDomain())
	}
	return result, nil
}

// runDML executes an UPDATE or DELETE query and returns the number of
// affected rows.
func (r *BigQueryTransactionRepository) runDML(ctx context.Context, q *bigquery.Query, op string) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("%s: job error: %w", op, err)
	}

	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return qs.NumDMLAffectedRows, nil
	}
	return 0, nil
}
