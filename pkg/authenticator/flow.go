package authenticator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/authpress/pkg/apppassword"
	"github.com/dmitrymomot/authpress/pkg/auth"
	"github.com/dmitrymomot/authpress/pkg/logger"
)

// AppPasswords verifies application passwords. Satisfied by *apppassword.Service.
type AppPasswords interface {
	Verify(ctx context.Context, user *auth.User, password string, meta apppassword.AccessMeta) (apppassword.Password, error)
}

// Credentials is one login submission.
type Credentials struct {
	Username string
	Password string
	// Code is nil when the form had no code field.
	Code *string
	// API marks programmatic clients. Only they may log in with an app
	// password unless the flow was built with WithAppPasswordsEverywhere.
	API       bool
	IP        string
	UserAgent string
	Method    string
}

// Flow runs the full login: primary password, then the second factor, with
// app passwords as an alternative for API clients.
type Flow struct {
	users     auth.UserProvider
	passwords auth.PasswordVerifier
	engine    *Engine
	apps      AppPasswords
	anyClient bool
	log       *slog.Logger
}

type FlowOption func(*Flow)

// WithAppPasswords enables app-password logins for API clients.
func WithAppPasswords(a AppPasswords) FlowOption {
	return func(f *Flow) { f.apps = a }
}

// WithAppPasswordsEverywhere lets interactive logins fall back to app
// passwords too, not only API clients.
func WithAppPasswordsEverywhere() FlowOption {
	return func(f *Flow) { f.anyClient = true }
}

func WithFlowLogger(l *slog.Logger) FlowOption {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

func NewFlow(users auth.UserProvider, passwords auth.PasswordVerifier, engine *Engine, opts ...FlowOption) *Flow {
	f := &Flow{
		users:     users,
		passwords: passwords,
		engine:    engine,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Login authenticates creds. Unknown users and wrong passwords both yield
// auth.ErrInvalidCredentials.
func (f *Flow) Login(ctx context.Context, creds Credentials) (Result, error) {
	user, err := f.users.GetUserByUsername(ctx, creds.Username)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return Result{}, auth.ErrInvalidCredentials
	case err != nil:
		return Result{}, unavailable(err)
	}

	err = f.passwords.VerifyPassword(ctx, user, creds.Password)
	switch {
	case err == nil:
		return f.engine.Authenticate(ctx, user, creds.Code)
	case !errors.Is(err, auth.ErrInvalidCredentials):
		return Result{}, unavailable(err)
	case f.apps == nil, !creds.API && !f.anyClient:
		return Result{}, auth.ErrInvalidCredentials
	}

	return f.appPasswordLogin(ctx, user, creds)
}

func (f *Flow) appPasswordLogin(ctx context.Context, user *auth.User, creds Credentials) (Result, error) {
	meta := apppassword.AccessMeta{IP: creds.IP, UserAgent: creds.UserAgent, Method: creds.Method}

	p, err := f.apps.Verify(ctx, user, creds.Password, meta)
	switch {
	case errors.Is(err, apppassword.ErrNoCredentialProvided):
		return Result{}, auth.ErrInvalidCredentials
	case errors.Is(err, apppassword.ErrWrongAppPassword):
		return Result{}, errors.Join(auth.ErrInvalidCredentials, err)
	case err != nil:
		return Result{}, unavailable(err)
	}

	state, err := f.engine.Classify(ctx, user)
	if err != nil {
		return Result{}, err
	}

	f.log.InfoContext(ctx, "app password login",
		logger.UserID(user.ID),
		logger.KeyID(p.Key),
		logger.RemoteIP(creds.IP),
		logger.Method(MethodAppPassword),
	)
	return Result{User: user, State: state, Method: MethodAppPassword}, nil
}
