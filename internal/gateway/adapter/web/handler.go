// Package web serves the user administration pages and the password reset flow.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"observe/internal/domain"
	gw "observe/internal/gateway"
	"observe/internal/gateway/account"
	"observe/internal/gateway/document"
)

// Accounts is the account service used by the handler.
type Accounts interface {
	List(ctx context.Context, c account.Caller) ([]domain.User, error)
	Get(ctx context.Context, c account.Caller, login string) (domain.User, error)
	Save(ctx context.Context, c account.Caller, f account.UserForm) (account.SaveOutcome, error)
	Delete(ctx context.Context, c account.Caller, login string) error
	RequestReset(ctx context.Context, login string) error
	CheckResetTarget(ctx context.Context, login string) error
	RedeemReset(ctx context.Context, login, token, password, confirm string) error
}

const changePasswordSegment = "change_password"

var permissions = []string{"user", "control", "admin", "none"}

type page struct {
	Title       string
	Message     string
	Status      int
	Login       string
	Users       []domain.User
	CanDelete   bool
	Form        account.UserForm
	Permissions []string
	Token       string
}

// Handler serves /users.
type Handler struct {
	router   chi.Router
	accounts Accounts
	views    Renderer
}

// NewHandler creates the /users handler.
func NewHandler(accounts Accounts, views Renderer) *Handler {
	h := &Handler{accounts: accounts, views: views}
	r := chi.NewRouter()
	r.Get("/users", h.list)
	r.Post("/users", h.save)
	r.Get("/users/{login}", h.get)
	r.Post("/users/{login}", h.delete)
	r.Get("/users/{login}/"+changePasswordSegment, h.requestReset)
	r.Get("/users/{login}/{token}", h.resetForm)
	r.Post("/users/{login}/{token}", h.redeem)
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// IsPublic reports whether r targets a reset route, which needs no credentials.
func IsPublic(r *http.Request) bool {
	rest, ok := strings.CutPrefix(r.URL.Path, "/users/")
	if !ok {
		return false
	}
	parts := strings.Split(rest, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

func caller(r *http.Request) (account.Caller, bool) {
	p, ok := gw.PrincipalFromContext(r.Context())
	return account.Caller{Principal: p, RemoteAddr: gw.ClientIP(r)}, ok
}

func wantsXML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "xml")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized, wantsXML(r))
		return
	}
	users, err := h.accounts.List(r.Context(), c)
	if err != nil {
		h.fail(w, r, err, wantsXML(r))
		return
	}
	if wantsXML(r) {
		h.writeDocument(w, r, document.NewUserList(users))
		return
	}
	h.render(w, r, http.StatusOK, "users", h.usersPage(c, users, ""))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized, true)
		return
	}
	u, err := h.accounts.Get(r.Context(), c, chi.URLParam(r, "login"))
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	h.writeDocument(w, r, document.NewUser(u))
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized, false)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", domain.ErrBadRequest, err), false)
		return
	}
	form := account.FormFromValues(r.PostForm)
	outcome, err := h.accounts.Save(r.Context(), c, form)
	if err != nil {
		h.failForm(w, r, c, form, err)
		return
	}
	h.showUsers(w, r, c, outcome.Message())
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized, false)
		return
	}
	login := chi.URLParam(r, "login")
	if err := h.accounts.Delete(r.Context(), c, login); err != nil {
		h.fail(w, r, err, false)
		return
	}
	h.showUsers(w, r, c, fmt.Sprintf("User '%s' was deleted successfully.", login))
}

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	if err := h.accounts.RequestReset(r.Context(), login); err != nil {
		h.fail(w, r, err, false)
		return
	}
	h.render(w, r, http.StatusOK, "message", page{
		Title:   "Change password",
		Login:   login,
		Message: fmt.Sprintf("Link for change password was sent to the e-mail address of '%s'.", login),
	})
}

func (h *Handler) resetForm(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	if err := h.accounts.CheckResetTarget(r.Context(), login); err != nil {
		h.fail(w, r, err, false)
		return
	}
	h.render(w, r, http.StatusOK, "reset", page{
		Title:   "Change password",
		Login:   login,
		Token:   chi.URLParam(r, "token"),
		Message: fmt.Sprintf("Please enter new password for user '%s'", login),
	})
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	token := chi.URLParam(r, "token")
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", domain.ErrBadRequest, err), false)
		return
	}
	err := h.accounts.RedeemReset(r.Context(), login, token, r.PostForm.Get("password"), r.PostForm.Get("confirm_password"))
	if errors.Is(err, domain.ErrPasswordMismatch) {
		h.render(w, r, http.StatusBadRequest, "reset", page{
			Title:   "Change password",
			Login:   login,
			Token:   token,
			Message: "Please confirm your password. Passwords are not identical.",
		})
		return
	}
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	h.render(w, r, http.StatusOK, "message", page{
		Title:   "Change password",
		Login:   login,
		Message: "Password has been successfully changed",
	})
}

func (h *Handler) showUsers(w http.ResponseWriter, r *http.Request, c account.Caller, message string) {
	users, err := h.accounts.List(r.Context(), c)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	h.render(w, r, http.StatusOK, "users", h.usersPage(c, users, message))
}

func (h *Handler) usersPage(c account.Caller, users []domain.User, message string) page {
	return page{
		Title:       "Users",
		Message:     message,
		Login:       c.Principal.ID,
		Users:       users,
		CanDelete:   c.Principal.HasAnyRole(domain.RoleAdmin, domain.RoleControl),
		Permissions: permissions,
	}
}

// failForm shows form errors next to the submitted values. Other errors
// render the error page.
func (h *Handler) failForm(w http.ResponseWriter, r *http.Request, c account.Caller, form account.UserForm, err error) {
	var verr *account.ValidationError
	message := ""
	switch {
	case errors.As(err, &verr):
		message = verr.Error()
	case errors.Is(err, domain.ErrPasswordMismatch):
		message = "Please confirm your password. Passwords are not identical."
	default:
		h.fail(w, r, err, false)
		return
	}
	p := h.usersPage(c, nil, message)
	form.Password, form.ConfirmPassword = "", ""
	p.Form = form
	h.render(w, r, http.StatusBadRequest, "users", p)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, asXML bool) {
	p := gw.StatusOf(err)
	if p.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "users request failed",
			"path", r.URL.Path, "status", p.Status, "request_id", gw.RequestIDFromContext(r.Context()), "error", err)
	}
	if asXML {
		gw.WriteProblem(w, p, 0)
		return
	}
	h.render(w, r, p.Status, "error", page{Title: "Error", Status: p.Status, Message: p.Message})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, model page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.views.Render(w, name, model); err != nil {
		slog.ErrorContext(r.Context(), "rendering page", "template", name, "error", err)
	}
}

func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, doc any) {
	body, err := document.Encode(doc)
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	gw.WriteXML(w, http.StatusOK, body)
}
