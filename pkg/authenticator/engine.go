package authenticator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authpress/pkg/account"
	"github.com/dmitrymomot/authpress/pkg/auth"
	"github.com/dmitrymomot/authpress/pkg/logger"
	"github.com/dmitrymomot/authpress/pkg/replay"
	"github.com/dmitrymomot/authpress/pkg/settings"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

// Accounts is the slice of account.Service the engine needs.
type Accounts interface {
	Load(ctx context.Context, id uuid.UUID) (account.State, error)
	ConsumeGraceLogin(ctx context.Context, id uuid.UUID, limit int) (int, error)
	ConsumeRecoveryKey(ctx context.Context, id uuid.UUID, submitted string) (bool, error)
}

// ReplayGuard is the slice of replay.Guard the engine needs.
type ReplayGuard interface {
	Consume(ctx context.Context, bucket, code string) error
}

// Engine decides whether a user who passed the primary credential check may
// complete the login.
type Engine struct {
	accounts Accounts
	guard    ReplayGuard
	options  settings.Provider
	log      *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now, which determines the current time-slice.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine.
func New(accounts Accounts, guard ReplayGuard, options settings.Provider, opts ...Option) *Engine {
	e := &Engine{
		accounts: accounts,
		guard:    guard,
		options:  options,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify returns the state a login by user would be handled in.
func (e *Engine) Classify(ctx context.Context, user *auth.User) (State, error) {
	state, _, _, err := e.classify(ctx, user)
	return state, err
}

func (e *Engine) classify(ctx context.Context, user *auth.User) (State, account.State, settings.Options, error) {
	if user == nil {
		return NoTwoFactorRequired, account.State{}, settings.Options{}, ErrUserRequired
	}

	opts, err := e.options.Options(ctx)
	if err != nil {
		return NoTwoFactorRequired, account.State{}, settings.Options{}, unavailable(err)
	}

	st, err := e.accounts.Load(ctx, user.ID)
	if err != nil {
		return NoTwoFactorRequired, account.State{}, opts, unavailable(err)
	}

	forced := opts.IsForced(user.Roles)
	switch {
	case !opts.Active, !st.Active && !forced:
		return NoTwoFactorRequired, st, opts, nil
	case st.HasSecret():
		return RequiredWithSecret, st, opts, nil
	case forced:
		return RequiredNoSecret, st, opts, nil
	default:
		return NoTwoFactorRequired, st, opts, nil
	}
}

// Authenticate runs the second-factor decision for user. code is nil when the
// login form carried no code field at all.
//
// On success the returned Result says how the login was satisfied. Every
// rejection is terminal for this attempt; storage failures are reported as
// ErrStorageUnavailable and never as a deny.
func (e *Engine) Authenticate(ctx context.Context, user *auth.User, code *string) (Result, error) {
	state, st, opts, err := e.classify(ctx, user)
	if err != nil {
		return Result{}, err
	}

	res := Result{User: user, State: state}
	log := e.log.With(logger.Component("authenticator"), logger.UserID(user.ID), logger.State(state))

	switch state {
	case RequiredNoSecret:
		return e.graceLogin(ctx, log, res, opts)
	case RequiredWithSecret:
		return e.verifyCode(ctx, log, res, st, opts, code)
	default:
		res.Method = MethodNone
		return res, nil
	}
}

func (e *Engine) graceLogin(ctx context.Context, log *slog.Logger, res Result, opts settings.Options) (Result, error) {
	res.Method = MethodGrace

	if opts.Unlimited() {
		res.RemainingAttempts = settings.UnlimitedAttempts
		return res, nil
	}

	left, err := e.accounts.ConsumeGraceLogin(ctx, res.User.ID, opts.MaxAttempts)
	switch {
	case errors.Is(err, account.ErrMaxAttemptsExceeded):
		log.WarnContext(ctx, "login without two-factor setup locked out", logger.Event("lockout"))
		return Result{}, ErrMaxAttemptsExceeded
	case err != nil:
		return Result{}, unavailable(err)
	}

	res.RemainingAttempts = left
	res.Warning = graceWarning(left)
	log.InfoContext(ctx, "grace login accepted", logger.Event("grace_login"), slog.Int("remaining", left))
	return res, nil
}

func (e *Engine) verifyCode(ctx context.Context, log *slog.Logger, res Result, st account.State, opts settings.Options, code *string) (Result, error) {
	if code == nil {
		return Result{}, ErrMissingCode
	}
	submitted := strings.TrimSpace(*code)
	if submitted == "" {
		return Result{}, ErrEmptyCode
	}

	slice := totp.TimeSlice(e.now())
	_, matched, matchErr := totp.MatchWindow(st.Secret, submitted, slice, opts.Drift(), opts.CodeLength)
	if matchErr != nil {
		log.ErrorContext(ctx, "stored secret is unusable", logger.Error(matchErr))
	}

	if matched {
		bucket := replay.Bucket(opts.GlobalReplay(), res.User.ID.String())
		switch err := e.guard.Consume(ctx, bucket, submitted); {
		case errors.Is(err, replay.ErrCodeAlreadyUsed):
			log.WarnContext(ctx, "replayed one-time code rejected", logger.Event("replay"))
			return Result{}, ErrCodeAlreadyUsed
		case err != nil:
			return Result{}, unavailable(err)
		}
		res.Method = MethodTOTP
		log.InfoContext(ctx, "one-time code accepted", logger.Method(res.Method))
		return res, nil
	}

	if totp.MatchRecoveryKey(submitted, st.RecoveryKey) {
		used, err := e.accounts.ConsumeRecoveryKey(ctx, res.User.ID, submitted)
		if err != nil {
			return Result{}, unavailable(err)
		}
		if used {
			res.Method = MethodRecoveryKey
			res.TwoFactorReset = true
			res.Warning = "Two-factor authentication has been turned off for your account. Set it up again from your profile."
			log.WarnContext(ctx, "recovery key consumed, two-factor reset", logger.Event("recovery_key_used"))
			return res, nil
		}
		log.WarnContext(ctx, "recovery key already consumed", logger.Event("recovery_key_reused"))
		return Result{}, ErrInvalidCode
	}

	if matchErr != nil {
		return Result{}, errors.Join(ErrInvalidCode, matchErr)
	}
	log.InfoContext(ctx, "invalid one-time code", logger.Event("invalid_code"))
	return Result{}, ErrInvalidCode
}

func graceWarning(left int) string {
	if left == 1 {
		return "Two-factor authentication is required for your account. Set it up now: 1 login remaining."
	}
	return fmt.Sprintf("Two-factor authentication is required for your account. Set it up now: %d logins remaining.", left)
}

// unavailable marks err as a storage failure. Invalid options are a
// configuration fault and keep their own sentinel.
func unavailable(err error) error {
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrInvalidOptions) {
		return err
	}
	return errors.Join(ErrStorageUnavailable, err)
}
