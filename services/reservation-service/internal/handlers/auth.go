package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/flash"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/policy"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/session"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type loginView struct {
	Username string
	Next     string
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	next := session.SafeNext(r.URL.Query().Get("next"))
	if !session.FromContext(r.Context()).Anonymous() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	stash := h.Flash.Pop(r)
	h.render(w, r, http.StatusOK, "login.html", page{
		Title:    "Sign in",
		Messages: stash.Messages,
		Body:     loginView{Username: stash.Form["username"], Next: next},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
		Next:     session.SafeNext(r.PostForm.Get("next")),
	}
	back := session.LoginPath + "?next=" + url.QueryEscape(form.Next)
	fail := func(level, text string) {
		h.Flash.Set(w, r, flash.Entry{
			Messages: []flash.Message{{Level: level, Text: text}},
			Form:     map[string]string{"username": form.Username},
		})
		http.Redirect(w, r, back, http.StatusSeeOther)
	}

	if err := validate.Struct(form); err != nil {
		fail(flash.LevelWarning, "Please enter your username and password.")
		return
	}

	user, err := h.Users.GetByUsername(r.Context(), form.Username)
	if err != nil && !storage.IsNotFound(err) {
		h.Logger.ErrorContext(r.Context(), "user lookup failed", "err", err)
		fail(flash.LevelDanger, "Sign in is temporarily unavailable, please try again.")
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)) != nil {
		h.audit(r, storage.AuditLoginFailed, "", map[string]any{"username": form.Username})
		h.Logger.WarnContext(r.Context(), "login failed", "username", form.Username)
		fail(flash.LevelDanger, "Invalid username or password.")
		return
	}

	if err := h.Sessions.Issue(w, user); err != nil {
		h.Logger.ErrorContext(r.Context(), "session issue failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.audit(r, storage.AuditLoginSucceeded, user.ID, map[string]any{"username": user.Username})
	h.Logger.InfoContext(r.Context(), "login succeeded", "username", user.Username, "role", user.Role)
	http.Redirect(w, r, form.Next, http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	who := session.FromContext(r.Context())
	h.Sessions.Clear(w)
	if !who.Anonymous() {
		h.audit(r, storage.AuditLogout, who.UserID, map[string]any{"username": who.Username})
	}
	h.Flash.Set(w, r, flash.Entry{Messages: []flash.Message{{Level: flash.LevelInfo, Text: "You have been signed out."}}})
	http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
}

type registerView struct {
	Username string
	Role     string
	Roles    []string
	Activity []storage.AuditEvent
}

const recentActivityLimit = 10

// requireAdmin answers 403 unless the caller may register users. The
// session may predate a role change, so the stored role decides.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	who := session.FromContext(r.Context())
	if !policy.CanRegisterUsers(who) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return who, false
	}
	current, err := h.Users.GetByID(r.Context(), who.UserID)
	if err != nil {
		if !storage.IsNotFound(err) {
			h.Logger.ErrorContext(r.Context(), "admin lookup failed", "user_id", who.UserID, "err", err)
		}
		http.Error(w, "forbidden", http.StatusForbidden)
		return who, false
	}
	who.Role = current.Role
	if !policy.CanRegisterUsers(who) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return who, false
	}
	return who, true
}

func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	stash := h.Flash.Pop(r)
	role := stash.Form["role"]
	if role == "" {
		role = model.RoleClient
	}
	var activity []storage.AuditEvent
	if h.Audit != nil {
		events, err := h.Audit.ListRecent(r.Context(), recentActivityLimit)
		if err != nil {
			h.Logger.WarnContext(r.Context(), "audit list failed", "err", err)
		}
		activity = events
	}
	h.render(w, r, http.StatusOK, "register.html", page{
		Title:    "Register a user",
		Messages: stash.Messages,
		Body: registerView{
			Username: stash.Form["username"],
			Role:     role,
			Roles:    []string{model.RoleClient, model.RoleAdmin},
			Activity: activity,
		},
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	who, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := registerForm{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
		Confirm:  r.PostForm.Get("confirm"),
		Role:     r.PostForm.Get("role"),
	}
	form.normalize()
	back := func(level string, texts ...string) {
		entry := flash.Entry{Form: map[string]string{"username": form.Username, "role": form.Role}}
		for _, t := range texts {
			entry.Messages = append(entry.Messages, flash.Message{Level: level, Text: t})
		}
		h.Flash.Set(w, r, entry)
		http.Redirect(w, r, "/admin/register", http.StatusSeeOther)
	}

	if err := validate.Struct(form); err != nil {
		back(flash.LevelWarning, explainRegister(err)...)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "password hash failed", "err", err)
		back(flash.LevelDanger, "The user could not be created, please try again.")
		return
	}
	user := model.User{
		ID:           uuid.NewString(),
		Username:     form.Username,
		PasswordHash: string(hash),
		Role:         form.Role,
	}
	if err := h.Users.Create(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			back(flash.LevelWarning, "That username is already taken.")
			return
		}
		h.Logger.ErrorContext(r.Context(), "user create failed", "err", err)
		back(flash.LevelDanger, "The user could not be created, please try again.")
		return
	}

	h.audit(r, storage.AuditUserRegistered, who.UserID, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
	h.Logger.InfoContext(r.Context(), "user registered", "username", user.Username, "role", user.Role, "by", who.Username)
	h.Flash.Set(w, r, flash.Entry{Messages: []flash.Message{{
		Level: flash.LevelSuccess,
		Text:  "User " + user.Username + " registered as " + user.Role + ".",
	}}})
	http.Redirect(w, r, "/admin/register", http.StatusSeeOther)
}
