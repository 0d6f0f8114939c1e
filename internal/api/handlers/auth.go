package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finsight-labs/finsight/internal/api/middleware"
	"github.com/finsight-labs/finsight/internal/domain"
	"github.com/finsight-labs/finsight/internal/infra/bigquery"
)

// AuthHandler handles account endpoints. Credential verification is
// delegated to the identity provider in front of this API; this layer only
// manages the profile rows keyed by the identity it is handed.
type AuthHandler struct {
	profiles bigquery.ProfileRepository
	log      zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(profiles bigquery.ProfileRepository, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{profiles: profiles, log: log}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email is required")
		return
	}

	ctx := r.Context()

	existing, err := h.profiles.GetProfileByEmail(ctx, req.Email)
	if err != nil && err != bigquery.ErrNotFound && !bigquery.IsMissingTable(err) {
		h.log.Error().Err(err).Msg("Failed to check existing profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}
	if existing != nil {
		middleware.WriteError(w, http.StatusConflict, "An account with this email already exists")
		return
	}

	// Financial fields start zeroed; the user fills them in from settings.
	profile := &domain.UserProfile{
		ID:    uuid.New().String(),
		Email: req.Email,
		Name:  req.Name,
	}

	if err := h.profiles.InsertProfile(ctx, profile); err != nil {
		if bigquery.IsMissingTable(err) {
			h.log.Warn().Err(err).Msg("Profiles table missing, returning synthetic profile")
			middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": profile})
			return
		}
		h.log.Error().Err(err).Msg("Failed to insert profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": profile})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email is required")
		return
	}

	profile, err := h.profiles.GetProfileByEmail(r.Context(), req.Email)
	if err != nil {
		if err == bigquery.ErrNotFound || bigquery.IsMissingTable(err) {
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.Error().Err(err).Msg("Failed to look up profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

// Logout handles POST /api/auth/logout. Sessions live with the identity
// provider, so there is nothing to invalidate server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateMe handles PUT /api/auth/me: the settings edit for name and the
// budgeting fields. Omitted fields keep their stored values.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	var req struct {
		Name          *string  `json:"name"`
		MonthlyIncome *float64 `json:"monthlyIncome"`
		FixedBills    *float64 `json:"fixedBills"`
		SavingsGoal   *float64 `json:"savingsGoal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if (req.MonthlyIncome != nil && *req.MonthlyIncome < 0) ||
		(req.FixedBills != nil && *req.FixedBills < 0) ||
		(req.SavingsGoal != nil && *req.SavingsGoal < 0) {
		middleware.WriteError(w, http.StatusBadRequest, "Budget fields must be non-negative")
		return
	}

	ctx := r.Context()

	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		if err == bigquery.ErrNotFound {
			middleware.WriteError(w, http.StatusNotFound, "Profile not found")
			return
		}
		if !bigquery.IsMissingTable(err) {
			h.log.Error().Err(err).Msg("Failed to get profile")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to update profile")
			return
		}
		profile = &domain.UserProfile{ID: userID}
	}

	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.MonthlyIncome != nil {
		profile.MonthlyIncome = *req.MonthlyIncome
	}
	if req.FixedBills != nil {
		profile.FixedBills = *req.FixedBills
	}
	if req.SavingsGoal != nil {
		profile.SavingsGoal = *req.SavingsGoal
	}

	if err := h.profiles.UpdateProfile(ctx, profile); err != nil {
		if bigquery.IsMissingTable(err) {
			h.log.Warn().Err(err).Msg("Profiles table missing, returning synthetic profile")
			middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
			return
		}
		h.log.Error().Err(err).Msg("Failed to update profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "user-id header is required")
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		if err == bigquery.ErrNotFound || bigquery.IsMissingTable(err) {
			middleware.WriteError(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.log.Error().Err(err).Msg("Failed to get profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}
