package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finsight-labs/finsight/internal/api/middleware"
	"github.com/finsight-labs/finsight/internal/domain"
	"github.com/finsight-labs/finsight/internal/infra/bigquery"
)

// TelegramHandler handles bot-linkage endpoints and the inbound webhook
// that turns chat messages into transactions.
type TelegramHandler struct {
	transactions bigquery.TransactionRepository
	profiles     bigquery.ProfileRepository
	log          zerolog.Logger
}

// NewTelegramHandler creates a new telegram handler.
func NewTelegramHandler(transactions bigquery.TransactionRepository, profiles bigquery.ProfileRepository, log zerolog.Logger) *TelegramHandler {
	return &TelegramHandler{transactions: transactions, profiles: profiles, log: log}
}

// Verify handles GET /api/telegram/verify
func (h *TelegramHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		if err == bigquery.ErrNotFound || bigquery.IsMissingTable(err) {
			middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"connected": false})
			return
		}
		h.log.Error().Err(err).Msg("Failed to get profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to verify telegram link")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"connected": profile.TelegramConnected,
		"username":  profile.TelegramUsername,
	})
}

// Connect handles POST /api/telegram/connect
func (h *TelegramHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	var req struct {
		TelegramUsername string `json:"telegramUsername"`
		TelegramUserID   string `json:"telegramUserId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TelegramUserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "telegramUserId is required")
		return
	}

	err := h.profiles.SetTelegram(r.Context(), userID, true, req.TelegramUsername, req.TelegramUserID)
	if err != nil && !bigquery.IsMissingTable(err) {
		h.log.Error().Err(err).Msg("Failed to connect telegram")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to connect telegram")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"username": req.TelegramUsername,
	})
}

// Disconnect handles POST /api/telegram/disconnect
func (h *TelegramHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	err := h.profiles.SetTelegram(r.Context(), userID, false, "", "")
	if err != nil && !bigquery.IsMissingTable(err) {
		h.log.Error().Err(err).Msg("Failed to disconnect telegram")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to disconnect telegram")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// telegramUpdate is the subset of the bot API update payload this webhook
// reads.
type telegramUpdate struct {
	Message struct {
		Text string `json:"text"`
		From struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// Webhook handles POST /api/telegram/webhook. A message like
// "2500 Shoprite Food" becomes a transaction for the sending chat user.
// Malformed commands still return 200 so the bot platform does not retry.
func (h *TelegramHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if update.Message.Text == "" || update.Message.From.ID == 0 {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   "No message to process",
		})
		return
	}

	amount, merchant, category, err := parseCommand(update.Message.Text)
	if err != nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	transaction := &domain.Transaction{
		ID:        uuid.New().String(),
		UserID:    fmt.Sprintf("telegram_%d", update.Message.From.ID),
		Merchant:  merchant,
		Amount:    amount,
		Category:  category,
		Date:      time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}

	if err := h.transactions.InsertTransaction(r.Context(), transaction); err != nil {
		if !bigquery.IsMissingTable(err) {
			h.log.Error().Err(err).Msg("Failed to insert telegram transaction")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to store transaction")
			return
		}
		h.log.Warn().Err(err).Msg("Transactions table missing, returning synthetic record")
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"transaction": transaction,
	})
}

// parseCommand splits a whitespace-delimited "amount merchant [category]"
// message. The trailing token is taken as the category only when it names
// one; otherwise it stays part of the merchant.
func parseCommand(text string) (float64, string, domain.Category, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, "", "", fmt.Errorf("expected \"amount merchant category\", got %q", text)
	}

	amount, err := strconv.ParseFloat(strings.TrimPrefix(fields[0], "-"), 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("amount %q is not a number", fields[0])
	}
	amount = math.Abs(amount)

	category := domain.CategoryOther
	merchantFields := fields[1:]
	if len(merchantFields) > 1 {
		if c, ok := matchCategory(merchantFields[len(merchantFields)-1]); ok {
			category = c
			merchantFields = merchantFields[:len(merchantFields)-1]
		}
	}

	return amount, strings.Join(merchantFields, " "), category, nil
}

func matchCategory(s string) (domain.Category, bool) {
	for _, c := range domain.Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
