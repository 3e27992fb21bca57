// Package auth serves the operator login and logout pages on top of the session gate.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/caza2026/panel/internal/gate"
	"github.com/caza2026/panel/internal/shared"
	"github.com/caza2026/panel/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	guard          *gate.Guard
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	loginLimit     int
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts per
// IP and minute; zero disables the limit.
func NewHandler(logger *slog.Logger, guard *gate.Guard, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, loginLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		guard:          guard,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		loginLimit:     loginLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(gate.LoginView, h.showLogin)
	if h.loginLimit > 0 {
		r.With(httprate.Limit(h.loginLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(h.tooManyAttempts),
		)).Post(gate.LoginView, h.handleLogin)
	} else {
		r.Post(gate.LoginView, h.handleLogin)
	}
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

var fieldMessages = map[string]string{
	"Username": "Ingresá tu usuario.",
	"Password": "Ingresá tu contraseña.",
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	gt := h.guard.For(r)
	switch gt.State() {
	case gate.Authenticated:
		http.Redirect(w, r, gate.MainView, http.StatusSeeOther)
		return
	case gate.Checking:
		h.renderLoading(w, r)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldMessages[fieldErr.Field()]
			}
		}
	}

	if len(errs) == 0 {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			h.logger.Error("session missing during login")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		gt := h.guard.For(r)
		if gt.State() == gate.Checking {
			h.renderLoading(w, r)
			return
		}
		next, err := gt.Login(r.Context(), form.Username, form.Password, h.guard.Now())
		switch {
		case err == nil:
			h.sessionManager.Regenerate(sess)
			if _, err := h.csrfManager.Rotate(r.Context(), sess); err != nil {
				h.logger.Warn("rotate csrf", slog.Any("error", err))
			}
			sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Bienvenido, " + form.Username})
			h.logger.Info("operator logged in", slog.String("operator", form.Username))
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		case errors.Is(err, gate.ErrInvalidCredentials), errors.Is(err, gate.ErrMissingCredentials):
			h.logger.Info("login rejected", slog.String("operator", form.Username))
			errs["general"] = "Usuario o contraseña incorrectos."
		default:
			h.logger.Error("login", slog.Any("error", err))
			errs["general"] = "No se pudo iniciar sesión. Intentá nuevamente."
		}
	}

	form.Password = ""
	h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	next := gate.LoginView
	if sess != nil {
		gt := h.guard.For(r)
		target, err := gt.Logout(r.Context())
		if err != nil {
			h.logger.Warn("logout", slog.Any("error", err))
		} else {
			next = target
		}
		h.sessionManager.Regenerate(sess)
		if _, err := h.csrfManager.Rotate(r.Context(), sess); err != nil {
			h.logger.Warn("rotate csrf", slog.Any("error", err))
		}
		sess.AddFlash(shared.FlashMessage{Kind: shared.FlashInfo, Message: "Sesión cerrada."})
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) tooManyAttempts(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("login rate limited", slog.String("remote", r.RemoteAddr))
	h.renderLogin(w, r, http.StatusTooManyRequests, loginPageData{
		Errors: map[string]string{"general": "Demasiados intentos. Esperá un minuto y volvé a probar."},
	})
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Ingresar",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderLoading(w http.ResponseWriter, r *http.Request) {
	LoadingPage(h.templates, h.logger).ServeHTTP(w, r)
}

// LoadingPage renders the neutral page shown while a session cannot be checked.
// It carries neither content nor the login form.
func LoadingPage(templates *view.Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.Header().Set("Refresh", "2")
		if err := templates.RenderStatus(w, http.StatusServiceUnavailable, "pages/loading.html", view.TemplateData{Title: "Cargando"}); err != nil {
			logger.Error("render loading", slog.Any("error", err))
			http.Error(w, "Cargando…", http.StatusServiceUnavailable)
		}
	})
}
