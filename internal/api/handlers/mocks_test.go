package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/finsight-labs/finsight/internal/domain"
	"github.com/finsight-labs/finsight/internal/infra/bigquery"
)

// errMissingTable mimics the message shape of an unprovisioned-table error.
var errMissingTable = errors.New("googleapi: Error 404: Not found: Table demo.finsight.transactions")

type mockTransactionRepo struct {
	transactions []*domain.Transaction
	inserted     []*domain.Transaction
	listErr      error
	insertErr    error
	updateErr    error
	deleteErr    error
}

func (m *mockTransactionRepo) InsertTransaction(_ context.Context, t *domain.Transaction) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, t)
	m.transactions = append(m.transactions, t)
	return nil
}

func (m *mockTransactionRepo) ListTransactions(context.Context, string) ([]*domain.Transaction, error) {
	return m.transactions, m.listErr
}

func (m *mockTransactionRepo) ListTransactionsSince(context.Context, string, time.Time) ([]*domain.Transaction, error) {
	return m.transactions, m.listErr
}

func (m *mockTransactionRepo) GetTransaction(_ context.Context, _, id string) (*domain.Transaction, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	for _, t := range m.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, bigquery.ErrNotFound
}

func (m *mockTransactionRepo) UpdateTransaction(context.Context, *domain.Transaction) error {
	return m.updateErr
}

func (m *mockTransactionRepo) DeleteTransaction(context.Context, string, string) error {
	return m.deleteErr
}

type mockProfileRepo struct {
	profiles  map[string]*domain.UserProfile
	getErr    error
	insertErr error
	updateErr error
	inserted  []*domain.UserProfile
	updated   []*domain.UserProfile
	telegram  []string
}

func (m *mockProfileRepo) InsertProfile(_ context.Context, p *domain.UserProfile) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, p)
	return nil
}

func (m *mockProfileRepo) GetProfile(_ context.Context, userID string) (*domain.UserProfile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, bigquery.ErrNotFound
}

func (m *mockProfileRepo) GetProfileByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, p := range m.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, bigquery.ErrNotFound
}

func (m *mockProfileRepo) UpdateProfile(_ context.Context, p *domain.UserProfile) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, p)
	if _, ok := m.profiles[p.ID]; ok {
		m.profiles[p.ID] = p
	}
	return nil
}

func (m *mockProfileRepo) SetTelegram(_ context.Context, userID string, connected bool, username, telegramUserID string) error {
	m.telegram = append(m.telegram, userID)
	if p, ok := m.profiles[userID]; ok {
		p.TelegramConnected = connected
		p.TelegramUsername = username
		p.TelegramUserID = telegramUserID
	}
	return nil
}

// mockInference answers receipt QA by keyword in the question and returns
// canned values for the remaining operations.
type mockInference struct {
	merchantAnswer string
	amountAnswer   string
	dateAnswer     string
	caption        string
	classifyLabel  string
	generated      string
	askErr         error
	captionErr     error
	classifyErr    error
	generateErr    error
}

func (m *mockInference) AskImage(_ context.Context, _ []byte, _, question string) (string, error) {
	if m.askErr != nil {
		return "", m.askErr
	}
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "merchant"):
		return m.merchantAnswer, nil
	case strings.Contains(q, "amount"):
		return m.amountAnswer, nil
	case strings.Contains(q, "date"):
		return m.dateAnswer, nil
	}
	return "", nil
}

func (m *mockInference) CaptionImage(context.Context, []byte, string) (string, error) {
	return m.caption, m.captionErr
}

func (m *mockInference) Classify(context.Context, string, []string) (string, error) {
	return m.classifyLabel, m.classifyErr
}

func (m *mockInference) Generate(context.Context, string) (string, error) {
	return m.generated, m.generateErr
}

func (m *mockInference) GenerateStream(context.Context, string) (string, error) {
	return m.generated, m.generateErr
}

type mockImageSource struct {
	data []byte
	mime string
	err  error

	archived   []string
	archiveErr error
}

func (m *mockImageSource) Fetch(context.Context, string) ([]byte, string, error) {
	return m.data, m.mime, m.err
}

func (m *mockImageSource) Archive(_ context.Context, objectName string, _ []byte) (string, error) {
	if m.archiveErr != nil {
		return "", m.archiveErr
	}
	m.archived = append(m.archived, objectName)
	return "gs://test/" + objectName, nil
}
