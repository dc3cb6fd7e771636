package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"goodhabits/apperr"
	"goodhabits/auth"
	"goodhabits/i18n"
	"goodhabits/logger"
	"goodhabits/metrics"
	"goodhabits/models"
	"goodhabits/validation"
)

const maxBodyBytes = 1 << 20

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func sendJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// sendAPIError reports err with the status apperr assigns to it.
func sendAPIError(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.DetectLanguage(r)
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("API request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "err", err)
	}
	msg := pageErrorText(lang, err)
	if errors.Is(err, apperr.ErrDuplicate) {
		msg = i18n.T(lang, "register.taken")
	}
	sendJSONResponse(w, status, APIResponse{Status: "error", Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

type credentials struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) APILogin(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	ip := getClientIP(r)
	if !h.loginLimiter.Allow(ip) {
		sendJSONResponse(w, http.StatusTooManyRequests, APIResponse{Status: "error", Message: i18n.T(lang, "login.too_many")})
		return
	}

	var input credentials
	if err := decodeJSON(w, r, &input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "api.invalid_body")})
		return
	}

	user, err := h.authenticate(r, strings.TrimSpace(input.Username), input.Password)
	if errors.Is(err, errBadCredentials) {
		h.loginLimiter.RecordFailure(ip)
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: i18n.T(lang, "login.invalid")})
		return
	}
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	h.loginLimiter.Reset(ip)

	token, err := auth.CreateAPIToken(r.Context(), h.store, user.Username)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}

	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status: "success",
		Data: map[string]any{
			"token":       token,
			"username":    user.Username,
			"login_count": user.LoginCount,
		},
	})
}

func (h *Handler) APISignup(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	ip := getClientIP(r)
	if !h.signupLimiter.Allow(ip) {
		sendJSONResponse(w, http.StatusTooManyRequests, APIResponse{Status: "error", Message: i18n.T(lang, "login.too_many")})
		return
	}

	var input credentials
	if err := decodeJSON(w, r, &input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "api.invalid_body")})
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	if err := validation.Struct(input); err != nil {
		sendAPIError(w, r, err)
		return
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "register.password_short")})
		return
	}

	user, err := h.createUser(r, input.Username, input.Password)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}

	// Record signup attempt to limit rate of creation per IP
	h.signupLimiter.RecordFailure(ip)

	token, err := auth.CreateAPIToken(r.Context(), h.store, user.Username)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}

	sendJSONResponse(w, http.StatusCreated, APIResponse{
		Status: "success",
		Data: map[string]any{
			"token":    token,
			"username": user.Username,
		},
	})
}

type habitInput struct {
	Name      string           `json:"name" validate:"notblank,max=100"`
	Frequency models.Frequency `json:"frequency" validate:"required,oneof=Daily Weekly Monthly"`
}

func (h *Handler) createHabit(r *http.Request, username string, in habitInput) (models.Habit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return models.Habit{}, err
	}
	return h.store.CreateHabit(r.Context(), username, in.Name, in.Frequency)
}

func (h *Handler) APIListHabits(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	habits, err := h.store.ListHabitsForUser(r.Context(), u.Username)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: habits})
}

func (h *Handler) APICreateHabit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	var input habitInput
	if err := decodeJSON(w, r, &input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(u.Lang, "api.invalid_body")})
		return
	}
	habit, err := h.createHabit(r, u.Username, input)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusCreated, APIResponse{Status: "success", Data: habit})
}

func (h *Handler) APITrackHabit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	id, err := h.ownedHabitID(r, u.Username)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	res, err := h.engine.Track(r.Context(), id)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: res.Message, Data: res})
}

func (h *Handler) APIResetHabit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	id, err := h.ownedHabitID(r, u.Username)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	res, err := h.engine.Reset(r.Context(), id)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: res.Message, Data: res})
}

// tabInput is one record as the browser extension sends it.
type tabInput struct {
	Username string  `json:"username" validate:"notblank"`
	Title    string  `json:"title" validate:"max=1000"`
	URL      string  `json:"url" validate:"max=4096"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

// APIIngestTabs replaces the caller's tab snapshot. Every record must name
// the authenticated user; capture times are assigned by the store.
func (h *Handler) APIIngestTabs(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)

	var input []tabInput
	if err := decodeJSON(w, r, &input); err != nil {
		metrics.TabIngests.WithLabelValues("rejected").Inc()
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(u.Lang, "api.invalid_body")})
		return
	}
	if len(input) == 0 {
		metrics.TabIngests.WithLabelValues("rejected").Inc()
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(u.Lang, "api.empty_tabs")})
		return
	}

	records := make([]models.TabRecord, 0, len(input))
	for _, in := range input {
		in.Username = strings.TrimSpace(in.Username)
		if err := validation.Struct(in); err != nil {
			metrics.TabIngests.WithLabelValues("rejected").Inc()
			sendAPIError(w, r, err)
			return
		}
		if !strings.EqualFold(in.Username, u.Username) {
			metrics.TabIngests.WithLabelValues("forbidden").Inc()
			logger.Warn("tab record for another user", "caller", u.Username, "record_user", in.Username)
			sendJSONResponse(w, http.StatusForbidden, APIResponse{Status: "error", Message: i18n.T(u.Lang, "api.foreign_user")})
			return
		}
		records = append(records, models.TabRecord{
			Username: u.Username,
			Title:    in.Title,
			URL:      in.URL,
			Duration: in.Duration,
		})
	}

	if err := h.store.ReplaceTabsForUser(r.Context(), u.Username, records); err != nil {
		metrics.TabIngests.WithLabelValues("error").Inc()
		sendAPIError(w, r, err)
		return
	}
	metrics.TabIngests.WithLabelValues("ok").Inc()
	logger.Debug("tabs stored", "username", u.Username, "count", len(records))
	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status:  "success",
		Message: i18n.T(u.Lang, "api.tabs_saved"),
		Data:    map[string]int{"count": len(records)},
	})
}

func (h *Handler) APIListTabs(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	tabs, err := h.store.ListTabsForUser(r.Context(), u.Username)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: tabs})
}

func (h *Handler) APIChat(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	var input struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(u.Lang, "api.invalid_body")})
		return
	}
	if h.bridge == nil || !h.bridge.Enabled() {
		sendJSONResponse(w, http.StatusServiceUnavailable, APIResponse{Status: "error", Message: i18n.T(u.Lang, "chat.disabled")})
		return
	}
	reply, err := h.bridge.Ask(r.Context(), u.Username, input.Query)
	if err != nil {
		sendAPIError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]string{"reply": reply}})
}
