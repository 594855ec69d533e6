package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/services"
)

const (
	signInPath = "/users/sign_in"

	// MsgLoginFailed is the message reported when the server gives none.
	MsgLoginFailed = "Login failed"
)

// LoginResult is the outcome of [Manager.Login].
type LoginResult struct {
	Success bool
	Token   string
	Error   string
}

type signInRequest struct {
	User models.Credentials `json:"user"`
}

// Manager signs users in and out, keeping [Session] up to date.
type Manager struct {
	session *Session
	client  *services.Client
	logger  *log.Logger
}

// NewManager creates a [Manager]. client should read its token from session.
func NewManager(session *Session, client *services.Client, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{session: session, client: client, logger: logger}
}

// Session returns the managed session.
func (m *Manager) Session() *Session {
	return m.session
}

// Login exchanges credentials for a token and stores it.
//
// On success the token from the response Authorization header is persisted and mirrored. Any failure
// leaves the previous session untouched and reports the server's "error" message or [MsgLoginFailed].
func (m *Manager) Login(ctx context.Context, email, password string) LoginResult {
	data, err := json.Marshal(signInRequest{User: models.Credentials{Email: email, Password: password}})
	if err != nil {
		m.logger.Error("Login failed", "error", err)
		return LoginResult{Error: MsgLoginFailed}
	}

	header := http.Header{"Accept": {"application/json"}}
	resp, err := m.client.Do(ctx, http.MethodPost, signInPath, data, header)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		m.logger.Error("Login failed", "email", email, "error", err)
		return LoginResult{Error: services.ErrorMessage(err, MsgLoginFailed)}
	}

	token := resp.Headers.Get("Authorization")
	if token == "" {
		m.logger.Error("Login failed", "email", email, "error", "response carried no Authorization header")
		return LoginResult{Error: MsgLoginFailed}
	}

	if err := m.session.Set(ctx, token); err != nil {
		m.logger.Error("Login failed", "email", email, "error", err)
		return LoginResult{Error: MsgLoginFailed}
	}

	m.logger.Debug("Signed in", "email", email)
	return LoginResult{Success: true, Token: token}
}

// Logout clears the token synchronously. No request is sent to the server and repeated calls are harmless.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.session.Clear(ctx); err != nil {
		m.logger.Warn("Failed to clear persisted token", "error", err)
	}
}
