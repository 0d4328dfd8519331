package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authpress/pkg/auth"
	"github.com/dmitrymomot/authpress/pkg/logger"
	"github.com/dmitrymomot/authpress/pkg/qrcode"
	"github.com/dmitrymomot/authpress/pkg/settings"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

// maxCASRetries bounds optimistic retry loops on the attempt counter and recovery key.
const maxCASRetries = 16

// Enrollment is what a user needs to configure an authenticator app.
// RecoveryKey is only set when a key was issued by the same call.
type Enrollment struct {
	Secret      string
	URI         string
	RecoveryKey string
}

// Service owns the second-factor state of accounts.
type Service struct {
	store    Store
	options  settings.Provider
	verifier auth.PasswordVerifier
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPasswordVerifier enables RevealRecoveryKey.
func WithPasswordVerifier(v auth.PasswordVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// NewService creates an account service.
func NewService(store Store, options settings.Provider, opts ...Option) *Service {
	s := &Service{
		store:   store,
		options: options,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored state of a user.
func (s *Service) Load(ctx context.Context, id uuid.UUID) (State, error) {
	st, err := s.store.Load(ctx, id)
	if err != nil {
		return State{}, unavailable(err)
	}
	return st, nil
}

// IsActive reports whether a second factor applies to user: 2FA is offered
// site-wide and the user either opted in or is forced by role.
func (s *Service) IsActive(ctx context.Context, user *auth.User) (bool, error) {
	if user == nil {
		return false, ErrUserRequired
	}
	opts, err := s.settings(ctx)
	if err != nil {
		return false, err
	}
	if !opts.Active {
		return false, nil
	}
	st, err := s.Load(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return st.Active || opts.IsForced(user.Roles), nil
}

// IsForced reports whether site policy makes 2FA mandatory for user.
func (s *Service) IsForced(ctx context.Context, user *auth.User) (bool, error) {
	if user == nil {
		return false, ErrUserRequired
	}
	opts, err := s.settings(ctx)
	if err != nil {
		return false, err
	}
	return opts.Active && opts.IsForced(user.Roles), nil
}

// RemainingAttempts returns how many grace logins are left, floored at zero,
// or settings.UnlimitedAttempts when the budget is unbounded.
func (s *Service) RemainingAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	opts, err := s.settings(ctx)
	if err != nil {
		return 0, err
	}
	if opts.Unlimited() {
		return settings.UnlimitedAttempts, nil
	}
	st, err := s.Load(ctx, id)
	if err != nil {
		return 0, err
	}
	return Remaining(opts.MaxAttempts, st.Attempts), nil
}

// Remaining computes the grace logins left for a budget of limit after used attempts.
func Remaining(limit, used int) int {
	if limit == settings.UnlimitedAttempts {
		return settings.UnlimitedAttempts
	}
	return max(limit-used, 0)
}

// AddAttempt increments the attempt counter with compare-and-swap and returns the new value.
func (s *Service) AddAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	return s.bumpAttempts(ctx, id, settings.UnlimitedAttempts)
}

// ConsumeGraceLogin spends one grace login from a budget of limit.
// It returns the logins left afterwards, or ErrMaxAttemptsExceeded when the
// budget is already spent. Concurrent callers never overspend the budget.
func (s *Service) ConsumeGraceLogin(ctx context.Context, id uuid.UUID, limit int) (int, error) {
	if limit == settings.UnlimitedAttempts {
		return settings.UnlimitedAttempts, nil
	}
	used, err := s.bumpAttempts(ctx, id, limit)
	if err != nil {
		return 0, err
	}
	return Remaining(limit, used), nil
}

func (s *Service) bumpAttempts(ctx context.Context, id uuid.UUID, limit int) (int, error) {
	for range maxCASRetries {
		st, err := s.Load(ctx, id)
		if err != nil {
			return 0, err
		}
		if limit != settings.UnlimitedAttempts && st.Attempts >= limit {
			return st.Attempts, ErrMaxAttemptsExceeded
		}

		swapped, err := s.store.CompareAndSwapAttempts(ctx, id, st.Attempts, st.Attempts+1)
		if err != nil {
			return 0, unavailable(err)
		}
		if swapped {
			return st.Attempts + 1, nil
		}
	}
	return 0, ErrAttemptConflict
}

// ResetAttempts sets the attempt counter back to zero. This is how an
// administrator lifts a lockout.
func (s *Service) ResetAttempts(ctx context.Context, id uuid.UUID) error {
	if err := s.store.ResetAttempts(ctx, id); err != nil {
		return unavailable(err)
	}
	s.log.InfoContext(ctx, "login attempts reset",
		logger.Component("account"), logger.Event("reset_attempts"), logger.UserID(id))
	return nil
}

// SetActive records the user's own opt-in. The secret is kept either way.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return unavailable(err)
	}
	return nil
}

// Enable turns 2FA on for user, generating a secret and a recovery key when
// they are missing. An existing secret is kept.
func (s *Service) Enable(ctx context.Context, user *auth.User) (Enrollment, error) {
	if user == nil {
		return Enrollment{}, ErrUserRequired
	}
	st, err := s.Load(ctx, user.ID)
	if err != nil {
		return Enrollment{}, err
	}
	if !st.HasSecret() {
		return s.RegenerateSecret(ctx, user)
	}

	if err := s.SetActive(ctx, user.ID, true); err != nil {
		return Enrollment{}, err
	}
	return s.enrollment(ctx, user, st.Secret, st.HasRecoveryKey())
}

// RegenerateSecret replaces the secret, activates 2FA and resets attempts.
// A recovery key is issued if the account has none.
func (s *Service) RegenerateSecret(ctx context.Context, user *auth.User) (Enrollment, error) {
	if user == nil {
		return Enrollment{}, ErrUserRequired
	}
	opts, err := s.settings(ctx)
	if err != nil {
		return Enrollment{}, err
	}

	secret, err := totp.GenerateSecret(opts.SecretLength)
	if err != nil {
		return Enrollment{}, err
	}
	if err := s.store.SetSecret(ctx, user.ID, secret); err != nil {
		return Enrollment{}, unavailable(err)
	}

	st, err := s.Load(ctx, user.ID)
	if err != nil {
		return Enrollment{}, err
	}

	s.log.InfoContext(ctx, "two-factor secret generated",
		logger.Component("account"), logger.Event("secret_generated"), logger.UserID(user.ID))

	return s.enrollment(ctx, user, secret, st.HasRecoveryKey())
}

func (s *Service) enrollment(ctx context.Context, user *auth.User, secret string, hasKey bool) (Enrollment, error) {
	e := Enrollment{Secret: secret}

	if !hasKey {
		key, err := s.IssueRecoveryKey(ctx, user.ID)
		if err != nil {
			return Enrollment{}, err
		}
		e.RecoveryKey = key
	}

	uri, err := s.uri(ctx, user, secret)
	if err != nil {
		return Enrollment{}, err
	}
	e.URI = uri
	return e, nil
}

// Deactivate wipes the account's second-factor state: secret, active flag,
// attempts, recovery key and its timestamp. It cannot be undone.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return unavailable(err)
	}
	s.log.InfoContext(ctx, "two-factor deactivated",
		logger.Component("account"), logger.Event("deactivated"), logger.UserID(id))
	return nil
}

// Revoke is the administrator's deactivation of another user's 2FA.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return unavailable(err)
	}
	s.log.WarnContext(ctx, "two-factor revoked by administrator",
		logger.Component("account"), logger.Event("revoked"), logger.UserID(id))
	return nil
}

// IssueRecoveryKey generates a globally unique recovery key, replacing any previous one.
func (s *Service) IssueRecoveryKey(ctx context.Context, id uuid.UUID) (string, error) {
	opts, err := s.settings(ctx)
	if err != nil {
		return "", err
	}

	issuedAt := s.now()
	key, err := totp.GenerateUniqueRecoveryKey(ctx, opts.RecoveryKeyLength, totp.DefaultRecoveryKeyAttempts,
		func(ctx context.Context, key string) error {
			err := s.store.ClaimRecoveryKey(ctx, id, key, issuedAt)
			if errors.Is(err, ErrRecoveryKeyTaken) {
				return totp.ErrRecoveryKeyCollision
			}
			if err != nil {
				return unavailable(err)
			}
			return nil
		})
	if err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "recovery key issued",
		logger.Component("account"), logger.Event("recovery_key_issued"), logger.UserID(id))
	return key, nil
}

// IsRecoveryKey reports whether submitted equals the account's live recovery key after normalization.
func (s *Service) IsRecoveryKey(ctx context.Context, id uuid.UUID, submitted string) (bool, error) {
	st, err := s.Load(ctx, id)
	if err != nil {
		return false, err
	}
	return totp.MatchRecoveryKey(submitted, st.RecoveryKey), nil
}

// ConsumeRecoveryKey deactivates 2FA if submitted is the live recovery key.
// Check and wipe are one store operation, so concurrent submissions of the
// same key yield a single true.
func (s *Service) ConsumeRecoveryKey(ctx context.Context, id uuid.UUID, submitted string) (bool, error) {
	used, err := s.store.ConsumeRecoveryKey(ctx, id, submitted)
	if err != nil {
		return false, unavailable(err)
	}
	if used {
		s.log.InfoContext(ctx, "two-factor deactivated by recovery key",
			logger.Component("account"), logger.Event("recovery_key_used"), logger.UserID(id))
	}
	return used, nil
}

// RevealRecoveryKey returns the live recovery key once the user's primary
// password checks out.
func (s *Service) RevealRecoveryKey(ctx context.Context, user *auth.User, password string) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, ErrUserRequired
	}
	if s.verifier == nil {
		return "", time.Time{}, ErrVerifierNotConfigured
	}
	if err := s.verifier.VerifyPassword(ctx, user, password); err != nil {
		s.log.WarnContext(ctx, "recovery key reveal denied",
			logger.Component("account"), logger.UserID(user.ID), logger.Error(err))
		return "", time.Time{}, err
	}

	st, err := s.Load(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !st.HasRecoveryKey() {
		return "", time.Time{}, ErrNoRecoveryKey
	}
	return st.RecoveryKey, st.RecoveryKeyIssuedAt, nil
}

// ProvisioningURI returns the otpauth:// URI for the user's current secret.
func (s *Service) ProvisioningURI(ctx context.Context, user *auth.User) (string, error) {
	if user == nil {
		return "", ErrUserRequired
	}
	st, err := s.Load(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if !st.HasSecret() {
		return "", ErrNoSecret
	}
	return s.uri(ctx, user, st.Secret)
}

// ProvisioningQR renders ProvisioningURI as a PNG data URI.
func (s *Service) ProvisioningQR(ctx context.Context, user *auth.User, size int) (string, error) {
	uri, err := s.ProvisioningURI(ctx, user)
	if err != nil {
		return "", err
	}
	return qrcode.DataURI(uri, size)
}

func (s *Service) uri(ctx context.Context, user *auth.User, secret string) (string, error) {
	opts, err := s.settings(ctx)
	if err != nil {
		return "", err
	}
	return totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: user.Username,
		Issuer:      opts.Issuer,
		Digits:      opts.CodeLength,
	})
}

func (s *Service) settings(ctx context.Context) (settings.Options, error) {
	opts, err := s.options.Options(ctx)
	if err != nil {
		return settings.Options{}, unavailable(err)
	}
	return opts, nil
}

// unavailable marks err as a storage failure unless it is an options fault.
func unavailable(err error) error {
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, settings.ErrInvalidOptions) {
		return err
	}
	return errors.Join(ErrStorageUnavailable, err)
}
