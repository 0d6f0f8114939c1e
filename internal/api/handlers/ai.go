package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finsight-labs/finsight/internal/advice"
	"github.com/finsight-labs/finsight/internal/analysis"
	"github.com/finsight-labs/finsight/internal/api/middleware"
	"github.com/finsight-labs/finsight/internal/categorize"
	"github.com/finsight-labs/finsight/internal/domain"
	"github.com/finsight-labs/finsight/internal/infra/bigquery"
	"github.com/finsight-labs/finsight/internal/receipt"
	"github.com/finsight-labs/finsight/internal/storage"
)

// AIHandler handles the model-backed endpoints: receipt parsing,
// categorization, spending analysis, tips, and chat advice.
type AIHandler struct {
	transactions bigquery.TransactionRepository
	profiles     bigquery.ProfileRepository
	extractor    *receipt.Extractor
	engine       *categorize.Engine
	advisor      *advice.Advisor
	images       storage.ImageSource
	log          zerolog.Logger
}

// NewAIHandler creates a new AI handler.
func NewAIHandler(
	transactions bigquery.TransactionRepository,
	profiles bigquery.ProfileRepository,
	extractor *receipt.Extractor,
	engine *categorize.Engine,
	advisor *advice.Advisor,
	images storage.ImageSource,
	log zerolog.Logger,
) *AIHandler {
	return &AIHandler{
		transactions: transactions,
		profiles:     profiles,
		extractor:    extractor,
		engine:       engine,
		advisor:      advisor,
		images:       images,
		log:          log,
	}
}

type receiptRequest struct {
	ImageURL    string `json:"imageUrl"`
	ImageBase64 string `json:"imageBase64"`
}

// AnalyzeReceipt handles POST /api/ai/analyze-receipt
func (h *AIHandler) AnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	if middleware.UserID(r) == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	image, mimeType, errMsg := h.resolveImage(r.Context(), req)
	if errMsg != "" {
		middleware.WriteError(w, http.StatusBadRequest, errMsg)
		return
	}

	// Extraction never hard-fails: a failed parse comes back as a result
	// with success=false.
	result := h.extractor.Extract(r.Context(), image, mimeType)
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Categorize handles POST /api/ai/categorize
func (h *AIHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	if middleware.UserID(r) == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	var req struct {
		Merchant    string  `json:"merchant"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Merchant == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Merchant is required")
		return
	}

	category := h.engine.Categorize(r.Context(), req.Merchant, req.Description)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"category": string(category)})
}

// SpendingAnalysis handles GET /api/ai/spending-analysis
func (h *AIHandler) SpendingAnalysis(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	transactions, ok := h.monthTransactions(r.Context(), w, userID)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, analysis.Analyze(transactions))
}

// ProcessReceipt handles POST /api/ai/process-receipt: extract, categorize,
// and store in one round trip.
func (h *AIHandler) ProcessReceipt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()

	image, mimeType, errMsg := h.resolveImage(ctx, req)
	if errMsg != "" {
		middleware.WriteError(w, http.StatusBadRequest, errMsg)
		return
	}

	extraction := h.extractor.Extract(ctx, image, mimeType)
	if !extraction.Success {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success":    false,
			"extraction": extraction,
		})
		return
	}

	category := h.engine.Categorize(ctx, extraction.Merchant, extraction.Description)

	date := time.Now().UTC()
	if parsed, err := parseDate(extraction.Date); err == nil {
		date = parsed
	}

	id := uuid.New().String()
	transaction := &domain.Transaction{
		ID:              id,
		UserID:          userID,
		Merchant:        extraction.Merchant,
		Amount:          extraction.Amount,
		Category:        category,
		Description:     extraction.Description,
		Date:            date,
		AICategorized:   true,
		ReceiptImageURL: h.receiptURL(ctx, req, id, image, mimeType),
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.transactions.InsertTransaction(ctx, transaction); err != nil {
		if bigquery.IsMissingTable(err) {
			h.log.Warn().Err(err).Msg("Transactions table missing, returning synthetic record")
		} else {
			h.log.Error().Err(err).Msg("Failed to insert extracted transaction")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to store transaction")
			return
		}
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"transaction": transaction,
		"extraction":  extraction,
	})
}

// GetTips handles POST /api/ai/get-tips
func (h *AIHandler) GetTips(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	ctx := r.Context()

	transactions, ok := h.monthTransactions(ctx, w, userID)
	if !ok {
		return
	}
	profile := h.profileOrZero(ctx, userID)

	spending := analysis.Analyze(transactions)
	tips := advice.Tips(transactions, spending.CategoryBreakdown, spending.TotalSpent, profile.MonthlyIncome)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"tips": tips})
}

// Chat handles POST /api/ai/chat
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	ctx := r.Context()

	transactions, ok := h.monthTransactions(ctx, w, userID)
	if !ok {
		return
	}
	profile := h.profileOrZero(ctx, userID)

	middleware.WriteJSON(w, http.StatusOK, h.advisor.Advise(ctx, req.Message, profile, transactions))
}

// HealthReport handles GET /api/ai/health-report
func (h *AIHandler) HealthReport(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	ctx := r.Context()

	transactions, ok := h.monthTransactions(ctx, w, userID)
	if !ok {
		return
	}
	profile := h.profileOrZero(ctx, userID)

	middleware.WriteJSON(w, http.StatusOK, analysis.BuildHealthReport(profile, transactions))
}

// receiptURL returns the stored location of the receipt image. A URL-style
// reference is recorded as-is; an inline payload is archived first. Archive
// failures only cost the link, never the transaction.
func (h *AIHandler) receiptURL(ctx context.Context, req receiptRequest, transactionID string, image []byte, mimeType string) string {
	if req.ImageURL != "" {
		return req.ImageURL
	}

	uri, err := h.images.Archive(ctx, "receipts/"+transactionID+imageExtension(mimeType), image)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to archive receipt image")
		return ""
	}
	return uri
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".jpg"
	}
}

// resolveImage picks the image out of the request: a URL-style reference or
// an inline base64 payload. Returns a client-facing message on failure.
func (h *AIHandler) resolveImage(ctx context.Context, req receiptRequest) ([]byte, string, string) {
	switch {
	case req.ImageURL != "":
		image, mimeType, err := h.images.Fetch(ctx, req.ImageURL)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to fetch receipt image")
			return nil, "", "Failed to fetch image"
		}
		return image, mimeType, ""

	case req.ImageBase64 != "":
		image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return nil, "", "Invalid base64 image"
		}
		return image, http.DetectContentType(image), ""

	default:
		return nil, "", "imageUrl or imageBase64 is required"
	}
}

// monthTransactions lists the current month's transactions, degrading a
// missing table to an empty slice. On other errors it writes a 500 and
// returns ok=false.
func (h *AIHandler) monthTransactions(ctx context.Context, w http.ResponseWriter, userID string) ([]*domain.Transaction, bool) {
	now := time.Now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	transactions, err := h.transactions.ListTransactionsSince(ctx, userID, startOfMonth)
	if err != nil {
		if bigquery.IsMissingTable(err) {
			h.log.Warn().Err(err).Msg("Transactions table missing, analyzing empty month")
			return nil, true
		}
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return nil, false
	}
	return transactions, true
}

// profileOrZero fetches the user's profile, substituting a zeroed profile
// when none exists so income-relative rules simply stay quiet.
func (h *AIHandler) profileOrZero(ctx context.Context, userID string) *domain.UserProfile {
	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		if err != bigquery.ErrNotFound && !bigquery.IsMissingTable(err) {
			h.log.Error().Err(err).Msg("Failed to get profile, using zeroed profile")
		}
		return &domain.UserProfile{ID: userID}
	}
	return profile
}
