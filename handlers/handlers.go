package handlers

import (
	"crypto/sha256"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"goodhabits/apperr"
	"goodhabits/auth"
	"goodhabits/chat"
	"goodhabits/config"
	"goodhabits/db"
	"goodhabits/i18n"
	"goodhabits/logger"
	"goodhabits/metrics"
	"goodhabits/models"
	"goodhabits/store"
	"goodhabits/streak"
	"goodhabits/web"

	"github.com/dchest/captcha"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
)

type Handler struct {
	store  *store.Store
	engine *streak.Engine
	bridge *chat.Bridge

	loginLimiter  *rateLimiter
	signupLimiter *rateLimiter
}

func New(st *store.Store, engine *streak.Engine, bridge *chat.Bridge) *Handler {
	return &Handler{
		store:         st,
		engine:        engine,
		bridge:        bridge,
		loginLimiter:  newRateLimiter(),
		signupLimiter: newRateLimiter(),
	}
}

// Routes builds the full HTTP surface. The JSON API sits outside CSRF
// protection and authenticates with bearer tokens instead.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(SecurityHeadersMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	r.Handle("/captcha/*", captcha.Server(captcha.StdWidth, captcha.StdHeight))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(CORSMiddleware)
		api.Post("/login", h.APILogin)
		api.Post("/signup", h.APISignup)
		api.Group(func(p chi.Router) {
			p.Use(h.RequireToken)
			p.Get("/habits", h.APIListHabits)
			p.Post("/habits", h.APICreateHabit)
			p.Post("/habits/{id}/track", h.APITrackHabit)
			p.Post("/habits/{id}/reset", h.APIResetHabit)
			p.Get("/tabs", h.APIListTabs)
			p.Post("/tabs", h.APIIngestTabs)
			p.Post("/chat", h.APIChat)
		})
	})

	r.Group(func(pages chi.Router) {
		pages.Use(PlaintextCSRF, CSRFMiddleware(), LoadSessionUser)
		pages.Get("/", h.Index)
		pages.Get("/login", h.LoginPage)
		pages.Post("/login", h.Login)
		pages.Get("/register", h.RegisterPage)
		pages.Post("/register", h.Register)
		pages.Get("/logout", h.Logout)

		pages.Group(func(priv chi.Router) {
			priv.Use(RequireLogin)
			priv.Get("/dashboard", h.Dashboard)
			priv.Post("/habits", h.AddHabit)
			priv.Post("/habits/{id}/track", h.TrackHabit)
			priv.Post("/habits/{id}/reset", h.ResetHabit)
			priv.Get("/profile", h.Profile)
			priv.Post("/profile", h.UpdateProfile)
			priv.Post("/profile/password", h.ChangePassword)
			priv.Post("/chat", h.Chat)
			priv.Post("/chat/tabs", h.ChatTabs)
		})
	})

	return r
}

// CSRFMiddleware protects the HTML forms. The token key is derived from the
// session key so one secret configures both.
func CSRFMiddleware() func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte(config.AppConfig.SessionKey + "csrf"))
	return csrf.Protect(
		key[:],
		csrf.Secure(config.AppConfig.SecureCookies),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "Forbidden", http.StatusForbidden)
		})),
	)
}

// PlaintextCSRF tells the CSRF layer that a request arrived over plain HTTP,
// which turns off its strict Referer check for local deployments.
func PlaintextCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && !config.AppConfig.SecureCookies {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		sendJSONResponse(w, http.StatusServiceUnavailable, APIResponse{Status: "error", Message: "database unavailable"})
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success"})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.GetCurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, "index.html", nil)
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "login.html", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	ip := getClientIP(r)
	if !h.loginLimiter.Allow(ip) {
		renderTemplateStatus(w, r, http.StatusTooManyRequests, "login.html", map[string]any{"Error": i18n.T(lang, "login.too_many"), "Username": username})
		return
	}

	user, err := h.authenticate(r, username, password)
	if err != nil {
		h.loginLimiter.RecordFailure(ip)
		if !errors.Is(err, errBadCredentials) {
			logger.Error("login lookup failed", "err", err)
		}
		// HTMX doesn't swap content on 4xx by default.
		status := http.StatusUnauthorized
		if r.Header.Get("HX-Request") == "true" {
			status = http.StatusOK
		}
		renderTemplateStatus(w, r, status, "login.html", map[string]any{"Error": i18n.T(lang, "login.invalid"), "Username": username})
		return
	}
	h.loginLimiter.Reset(ip)

	if err := auth.SetSession(w, r, user.Username); err != nil {
		logger.Error("saving session", "err", err)
		http.Error(w, i18n.T(lang, "error.generic"), http.StatusInternalServerError)
		return
	}
	redirect(w, r, "/dashboard")
}

var errBadCredentials = errors.New("invalid username or password")

// authenticate checks credentials and bumps the login counter. Unknown users
// still pay for one bcrypt comparison.
func (h *Handler) authenticate(r *http.Request, username, password string) (models.User, error) {
	user, err := h.store.FindUserByName(r.Context(), username)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, err
	}

	targetHash := user.PasswordHash
	if err != nil {
		targetHash = db.DummyHash()
	}
	match := db.CheckPasswordHash(password, targetHash)
	if err != nil || !match {
		return models.User{}, errBadCredentials
	}

	count, err := h.store.IncrementLoginCount(r.Context(), user.Username)
	if err != nil {
		return models.User{}, err
	}
	user.LoginCount = count
	return user, nil
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "register.html", map[string]any{"CaptchaID": captcha.New()})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm")

	fail := func(status int, key string) {
		renderTemplateStatus(w, r, status, "register.html", map[string]any{
			"Error":     i18n.T(lang, key),
			"Username":  username,
			"CaptchaID": captcha.New(),
		})
	}

	ip := getClientIP(r)
	if !h.signupLimiter.Allow(ip) {
		fail(http.StatusTooManyRequests, "login.too_many")
		return
	}
	if username == "" || password == "" {
		fail(http.StatusBadRequest, "register.fields_required")
		return
	}
	if !captcha.VerifyString(r.FormValue("captcha_id"), r.FormValue("captcha")) {
		fail(http.StatusBadRequest, "register.captcha_invalid")
		return
	}
	if password != confirm {
		fail(http.StatusBadRequest, "register.mismatch")
		return
	}
	if err := auth.ValidatePassword(password); err != nil {
		fail(http.StatusBadRequest, "register.password_short")
		return
	}

	user, err := h.createUser(r, username, password)
	switch {
	case errors.Is(err, apperr.ErrDuplicate):
		fail(http.StatusConflict, "register.taken")
		return
	case errors.Is(err, apperr.ErrValidation):
		fail(http.StatusBadRequest, "register.fields_required")
		return
	case err != nil:
		logger.Error("registering user", "err", err)
		fail(apperr.HTTPStatus(err), "error.generic")
		return
	}
	h.signupLimiter.RecordFailure(ip)

	if err := auth.SetSession(w, r, user.Username); err != nil {
		logger.Error("saving session", "err", err)
	}
	redirect(w, r, "/dashboard")
}

func (h *Handler) createUser(r *http.Request, username, password string) (models.User, error) {
	hashed, err := db.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user, err := h.store.CreateUser(r.Context(), username, hashed)
	if err != nil {
		return models.User{}, err
	}
	logger.Info("user registered", "username", user.Username)
	return user, nil
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// habitView is one dashboard row.
type habitView struct {
	ID          int64
	Name        string
	Frequency   models.Frequency
	Display     string
	Segments    []bool
	LastTracked *time.Time
	Notice      *auth.Notice
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	ctx := r.Context()

	user, err := h.store.FindUserByName(ctx, u.Username)
	if err != nil {
		renderError(w, r, err)
		return
	}
	habits, err := h.store.ListHabitsForUser(ctx, u.Username)
	if err != nil {
		renderError(w, r, err)
		return
	}
	// Tab stats are optional.
	tabs, err := h.store.ListTabsForUser(ctx, u.Username)
	if err != nil {
		logger.Warn("listing tabs", "username", u.Username, "err", err)
		tabs = nil
	}

	notices, err := auth.PopNotices(w, r)
	if err != nil {
		logger.Warn("clearing notices", "username", u.Username, "err", err)
	}
	views := make([]habitView, 0, len(habits))
	for _, hb := range habits {
		v := habitView{
			ID:          hb.ID,
			Name:        hb.Name,
			Frequency:   hb.Frequency,
			Display:     streak.Display(hb.Streak),
			Segments:    progressSegments(hb.Streak),
			LastTracked: hb.LastTracked,
		}
		if n, ok := notices[hb.ID]; ok {
			v.Notice = &n
		}
		views = append(views, v)
	}

	data := map[string]any{
		"DisplayName": user.DisplayName,
		"Habits":      views,
		"Frequencies": models.Frequencies,
		"Tabs":        tabs,
		"ChatEnabled": h.bridge != nil && h.bridge.Enabled(),
	}
	if n, ok := notices[0]; ok {
		data["General"] = &n
	}
	renderTemplate(w, r, "dashboard.html", data)
}

// progressSegments renders the five-segment bar: streak%5 filled.
func progressSegments(s int) []bool {
	segs := make([]bool, streak.MilestoneEvery)
	for i := 0; i < streak.Progress(s); i++ {
		segs[i] = true
	}
	return segs
}

func (h *Handler) AddHabit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	in := habitInput{
		Name:      strings.TrimSpace(r.FormValue("name")),
		Frequency: models.Frequency(r.FormValue("frequency")),
	}
	if _, err := h.createHabit(r, u.Username, in); err != nil {
		addNotice(w, r, auth.Notice{Kind: "warning", Text: pageErrorText(u.Lang, err)})
	}
	redirect(w, r, "/dashboard")
}

func (h *Handler) TrackHabit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	id, err := h.ownedHabitID(r, u.Username)
	if err != nil {
		renderError(w, r, err)
		return
	}
	res, err := h.engine.Track(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	kind := "info"
	if res.Milestone {
		kind = "success"
	}
	addNotice(w, r, auth.Notice{HabitID: id, Kind: kind, Text: res.Message})
	redirect(w, r, "/dashboard")
}

func (h *Handler) ResetHabit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	id, err := h.ownedHabitID(r, u.Username)
	if err != nil {
		renderError(w, r, err)
		return
	}
	res, err := h.engine.Reset(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	addNotice(w, r, auth.Notice{HabitID: id, Kind: "warning", Text: res.Message})
	redirect(w, r, "/dashboard")
}

// addNotice queues n for the next dashboard render. A failed cookie write
// only loses the message, so the request carries on.
func addNotice(w http.ResponseWriter, r *http.Request, n auth.Notice) {
	if err := auth.AddNotice(w, r, n); err != nil {
		logger.Warn("saving notice", "habit_id", n.HabitID, "err", err)
	}
}

// ownedHabitID parses {id} and checks the habit belongs to username. A habit
// owned by someone else is reported as not found.
func (h *Handler) ownedHabitID(r *http.Request, username string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("id", "must be a positive integer")
	}
	habit, err := h.store.GetHabit(r.Context(), id)
	if err != nil {
		return 0, err
	}
	if !strings.EqualFold(habit.Username, username) {
		return 0, apperr.ErrNotFound
	}
	return id, nil
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.renderProfile(w, r, http.StatusOK, nil)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	bio := strings.TrimSpace(r.FormValue("bio"))

	err := h.store.UpdateProfile(r.Context(), u.Username, &displayName, &bio)
	switch {
	case errors.Is(err, apperr.ErrValidation):
		h.renderProfile(w, r, http.StatusBadRequest, map[string]any{"Error": i18n.T(u.Lang, "profile.name_required")})
	case err != nil:
		renderError(w, r, err)
	default:
		h.renderProfile(w, r, http.StatusOK, map[string]any{"Saved": i18n.T(u.Lang, "profile.saved")})
	}
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")

	fail := func(key string) {
		h.renderProfile(w, r, http.StatusBadRequest, map[string]any{"PasswordError": i18n.T(u.Lang, key)})
	}

	user, err := h.store.FindUserByName(r.Context(), u.Username)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if !db.CheckPasswordHash(current, user.PasswordHash) {
		fail("password.wrong")
		return
	}
	if next != confirm {
		fail("register.mismatch")
		return
	}
	if err := auth.ValidatePassword(next); err != nil {
		fail("register.password_short")
		return
	}
	hashed, err := db.HashPassword(next)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if err := h.store.UpdatePassword(r.Context(), u.Username, hashed); err != nil {
		renderError(w, r, err)
		return
	}
	logger.Info("password changed", "username", u.Username)
	h.renderProfile(w, r, http.StatusOK, map[string]any{"PasswordSaved": i18n.T(u.Lang, "password.changed")})
}

func (h *Handler) renderProfile(w http.ResponseWriter, r *http.Request, status int, extra map[string]any) {
	u, _ := auth.GetCurrentUser(r)
	user, err := h.store.FindUserByName(r.Context(), u.Username)
	if err != nil {
		renderError(w, r, err)
		return
	}
	data := map[string]any{"Profile": user}
	for k, v := range extra {
		data[k] = v
	}
	renderTemplateStatus(w, r, status, "profile.html", data)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	if h.bridge == nil || !h.bridge.Enabled() {
		renderPartial(w, r, "chat_reply.html", map[string]any{"Error": i18n.T(u.Lang, "chat.disabled")})
		return
	}
	reply, err := h.bridge.Ask(r.Context(), u.Username, r.FormValue("query"))
	if err != nil {
		renderPartial(w, r, "chat_reply.html", map[string]any{"Error": chatErrorText(u.Lang, err)})
		return
	}
	renderPartial(w, r, "chat_reply.html", map[string]any{"Reply": reply})
}

func (h *Handler) ChatTabs(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.GetCurrentUser(r)
	if h.bridge == nil || !h.bridge.Enabled() {
		renderPartial(w, r, "chat_reply.html", map[string]any{"Error": i18n.T(u.Lang, "chat.disabled")})
		return
	}
	reply, err := h.bridge.AnalyzeTabs(r.Context(), u.Username)
	if err != nil {
		renderPartial(w, r, "chat_reply.html", map[string]any{"Error": chatErrorText(u.Lang, err)})
		return
	}
	renderPartial(w, r, "chat_reply.html", map[string]any{"Reply": reply})
}

func chatErrorText(lang string, err error) string {
	if errors.Is(err, apperr.ErrValidation) {
		return i18n.T(lang, "chat.empty")
	}
	if !errors.Is(err, apperr.ErrRemoteService) {
		logger.Error("chat failed", "err", err)
	}
	return pageErrorText(lang, err)
}

// pageErrorText turns an error into a user-facing sentence.
func pageErrorText(lang string, err error) string {
	var ve apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Field == "name" {
			return i18n.T(lang, "habit.name_required")
		}
		return ve.Error()
	case errors.Is(err, apperr.ErrValidation):
		return err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return i18n.T(lang, "error.not_found")
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return i18n.T(lang, "error.storage")
	case errors.Is(err, apperr.ErrRemoteService):
		return i18n.T(lang, "chat.error")
	default:
		return i18n.T(lang, "error.generic")
	}
}

// redirect sends HTMX clients an HX-Redirect and everyone else a 303.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	http.Error(w, pageErrorText(i18n.DetectLanguage(r), err), status)
}

func templateFuncs(lang string) template.FuncMap {
	return template.FuncMap{
		"T": func(key string) string {
			return i18n.T(lang, key)
		},
		"humanize": humanize.Time,
	}
}

func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	renderTemplateStatus(w, r, http.StatusOK, name, data)
}

func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	lang := i18n.DetectLanguage(r)

	tmpl, err := template.New(name).Funcs(templateFuncs(lang)).ParseFS(web.Templates(), "layout.html", name)
	if err != nil {
		logger.Error("parsing template", "name", name, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["AppName"]; !exists {
		data["AppName"] = config.AppConfig.AppName
	}
	if u, ok := auth.GetCurrentUser(r); ok {
		data["User"] = u.Username
	}
	data["Lang"] = lang
	data["csrfField"] = csrf.TemplateField(r)
	data["csrfToken"] = csrf.Token(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		logger.Error("rendering template", "name", name, "err", err)
	}
}

// renderPartial executes a fragment without the layout, for HTMX swaps.
func renderPartial(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	lang := i18n.DetectLanguage(r)
	tmpl, err := template.New(name).Funcs(templateFuncs(lang)).ParseFS(web.Templates(), name)
	if err != nil {
		logger.Error("parsing template", "name", name, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, strings.TrimSuffix(name, ".html"), data); err != nil {
		logger.Error("rendering template", "name", name, "err", err)
	}
}
