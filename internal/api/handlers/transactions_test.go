package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/finsight-labs/finsight/internal/domain"
	"github.com/finsight-labs/finsight/internal/infra/bigquery"
)

func TestListTransactionsRequiresIdentity(t *testing.T) {
	h := NewTransactionsHandler(&mockTransactionRepo{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestListTransactions(t *testing.T) {
	repo := &mockTransactionRepo{transactions: []*domain.Transaction{
		{ID: "t1", UserID: "u1", Merchant: "Shoprite", Amount: 500, Category: domain.CategoryFood},
	}}
	h := NewTransactionsHandler(repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("user-id", "u1")
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Transactions []*domain.Transaction `json:"transactions"`
		Count        int                   `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Count != 1 || len(body.Transactions) != 1 {
		t.Errorf("count = %d, transactions = %d, want 1 each", body.Count, len(body.Transactions))
	}
}

func TestListTransactionsMissingTableDegrades(t *testing.T) {
	repo := &mockTransactionRepo{listErr: errMissingTable}
	h := NewTransactionsHandler(repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("user-id", "u1")
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d for missing table", rec.Code, http.StatusOK)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("count = %d, want 0", body.Count)
	}
}

func TestCreateTransaction(t *testing.T) {
	repo := &mockTransactionRepo{}
	h := NewTransactionsHandler(repo, zerolog.Nop())

	body := `{"merchant":"Uber","amount":1200,"category":"Transport","date":"2026-08-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	req.Header.Set("user-id", "u1")
	rec := httptest.NewRecorder()
	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d transactions, want 1", len(repo.inserted))
	}

	got := repo.inserted[0]
	if got.ID == "" {
		t.Error("transaction ID not assigned")
	}
	if got.UserID != "u1" || got.Merchant != "Uber" || got.Category != domain.CategoryTransport {
		t.Errorf("inserted = %+v, want u1/Uber/Transport", got)
	}
	if got.Date.Format("2006-01-02") != "2026-08-15" {
		t.Errorf("date = %v, want 2026-08-15", got.Date)
	}
}

func TestCreateTransactionNormalizesNegativeAmount(t *testing.T) {
	repo := &mockTransactionRepo{}
	h := NewTransactionsHandler(repo, zerolog.Nop())

	body := `{"merchant":"Refund Store","amount":-250.75}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	req.Header.Set("user-id", "u1")
	rec := httptest.NewRecorder()
	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d transactions, want 1", len(repo.inserted))
	}
	if got := repo.inserted[0].Amount; got != 250.75 {
		t.Errorf("amount = %v, want absolute value 250.75", got)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing merchant", `{"amount":100}`},
		{"unknown category", `{"merchant":"Shop","amount":5,"category":"Gambling"}`},
		{"bad date", `{"merchant":"Shop","amount":5,"date":"next tuesday"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTransactionsHandler(&mockTransactionRepo{}, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body))
			req.Header.Set("user-id", "u1")
			rec := httptest.NewRecorder()
			h.CreateTransaction(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCreateTransactionMissingTableDegrades(t *testing.T) {
	repo := &mockTransactionRepo{insertErr: errMissingTable}
	h := NewTransactionsHandler(repo, zerolog.Nop())

	body := `{"merchant":"Uber","amount":1200}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	req.Header.Set("user-id", "u1")
	rec := httptest.NewRecorder()
	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d for missing table", rec.Code, http.StatusCreated)
	}

	var got domain.Transaction
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.Merchant != "Uber" || got.ID == "" {
		t.Errorf("synthetic record = %+v, want populated Uber transaction", got)
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	repo := &mockTransactionRepo{deleteErr: bigquery.ErrNotFound}
	h := NewTransactionsHandler(repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/missing", nil)
	req.Header.Set("user-id", "u1")
	rec := httptest.NewRecorder()
	h.DeleteTransaction(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetTransaction(t *testing.T) {
	repo := &mockTransactionRepo{transactions: []*domain.Transaction{
		{ID: "t1", UserID: "u1", Merchant: "Netflix", Amount: 15, Category: domain.CategoryEntertainment, Date: time.Now()},
	}}
	h := NewTransactionsHandler(repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/t1", nil)
	req.Header.Set("user-id", "u1")
	rec := httptest.NewRecorder()
	h.GetTransaction(rec, req, "t1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got domain.Transaction
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.Merchant != "Netflix" {
		t.Errorf("merchant = %q, want Netflix", got.Merchant)
	}
}
