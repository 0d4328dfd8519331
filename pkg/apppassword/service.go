package apppassword

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authpress/pkg/auth"
	"github.com/dmitrymomot/authpress/pkg/logger"
	"github.com/dmitrymomot/authpress/pkg/settings"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

const (
	shortIDLength   = 5
	passwordLength  = 24
	maxKeySuffix    = 100
	defaultLogLimit = 50
)

// Generator produces a new plaintext app password.
type Generator func(length int) (string, error)

// Service manages app passwords and their access log.
type Service struct {
	store   Store
	log     AccessLog
	hasher  auth.Hasher
	users   auth.UserProvider
	options settings.Provider
	gen     Generator
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithAccessLog(l AccessLog) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithHasher(h auth.Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithUserProvider enables Authenticate by username.
func WithUserProvider(p auth.UserProvider) Option {
	return func(s *Service) { s.users = p }
}

// WithSettings supplies AppPasswordLogMax.
func WithSettings(p settings.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.options = p
		}
	}
}

func WithGenerator(g Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.gen = g
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates an app password service. Without options it uses an
// in-memory access log, bcrypt and the default settings.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		log:     NewMemoryLog(),
		hasher:  auth.NewBcryptHasher(0),
		options: settings.NewStatic(settings.Defaults()),
		gen:     totp.GenerateRecoveryKey,
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShortID is the key prefix derived from a plaintext password.
func ShortID(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])[:shortIDLength]
}

// Create generates, hashes and stores a new app password. The plaintext is
// returned once. On a key collision a numeric suffix is appended.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, description string) (Created, error) {
	plain, err := s.gen(passwordLength)
	if err != nil {
		return Created{}, err
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return Created{}, err
	}

	p := Password{
		Description: strings.TrimSpace(description),
		Hash:        hash,
		CreatedAt:   s.now(),
	}
	prefix := ShortID(plain)

	for i := -1; i < maxKeySuffix; i++ {
		p.Key = prefix
		if i >= 0 {
			p.Key = prefix + strconv.Itoa(i)
		}

		err := s.store.Insert(ctx, userID, p)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "app password created",
				logger.UserID(userID.String()),
				logger.KeyID(p.Key),
			)
			return Created{Key: p.Key, Plaintext: plain}, nil
		case errors.Is(err, ErrKeyTaken):
			continue
		default:
			return Created{}, errors.Join(ErrStorageUnavailable, err)
		}
	}

	return Created{}, ErrKeySpaceExhausted
}

// Verify checks password against every stored key that shares its prefix.
// On success the use counter is incremented and the access is logged.
func (s *Service) Verify(ctx context.Context, user *auth.User, password string, meta AccessMeta) (Password, error) {
	if user == nil || password == "" {
		return Password{}, ErrNoCredentialProvided
	}

	all, err := s.store.List(ctx, user.ID)
	if err != nil {
		return Password{}, errors.Join(ErrStorageUnavailable, err)
	}

	candidates := matchingKeys(all, ShortID(password))
	if len(candidates) == 0 {
		return Password{}, ErrNoCredentialProvided
	}

	var matched *Password
	for i := range candidates {
		if s.hasher.Verify(password, candidates[i].Hash) == nil {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		s.logger.WarnContext(ctx, "wrong app password",
			logger.UserID(user.ID.String()),
			logger.RemoteIP(meta.IP),
		)
		return Password{}, ErrWrongAppPassword
	}

	s.recordUse(ctx, user.ID, matched, meta)
	return *matched, nil
}

// Authenticate resolves username and verifies an app password for it.
func (s *Service) Authenticate(ctx context.Context, username, password string, meta AccessMeta) (*auth.User, Password, error) {
	if s.users == nil {
		return nil, Password{}, ErrUserProviderMissing
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, Password{}, ErrNoCredentialProvided
		}
		return nil, Password{}, errors.Join(ErrStorageUnavailable, err)
	}
	p, err := s.Verify(ctx, user, password, meta)
	if err != nil {
		return nil, Password{}, err
	}
	return user, p, nil
}

// recordUse failures do not revoke an access that already verified.
func (s *Service) recordUse(ctx context.Context, userID uuid.UUID, p *Password, meta AccessMeta) {
	if n, err := s.store.IncrementCount(ctx, userID, p.Key); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment app password count",
			logger.UserID(userID.String()),
			logger.KeyID(p.Key),
			logger.Error(err),
		)
	} else {
		p.Count = n
	}

	limit := defaultLogLimit
	if opts, err := s.options.Options(ctx); err == nil {
		limit = opts.AppPasswordLogMax
	}

	entry := AccessEntry{
		UserID:    userID,
		Key:       p.Key,
		Time:      s.now(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Method:    meta.Method,
	}
	if err := s.log.Append(ctx, entry, limit); err != nil {
		s.logger.ErrorContext(ctx, "failed to append app password access",
			logger.UserID(userID.String()),
			logger.KeyID(p.Key),
			logger.Error(err),
		)
	}
}

// List returns the user's app passwords, oldest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Password, error) {
	all, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	slices.SortFunc(all, func(a, b Password) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return all, nil
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, key string) error {
	if err := s.store.Delete(ctx, userID, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Service) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DeleteAll(ctx, userID); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

// Log returns the access log, newest first.
func (s *Service) Log(ctx context.Context, userID uuid.UUID) ([]AccessEntry, error) {
	entries, err := s.log.Entries(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return entries, nil
}

func (s *Service) ClearLog(ctx context.Context, userID uuid.UUID) error {
	if err := s.log.Clear(ctx, userID); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

// LastAccess returns the most recent logged use of key.
func (s *Service) LastAccess(ctx context.Context, userID uuid.UUID, key string) (AccessEntry, bool, error) {
	entries, err := s.Log(ctx, userID)
	if err != nil {
		return AccessEntry{}, false, err
	}
	for _, e := range entries {
		if e.Key == key {
			return e, true, nil
		}
	}
	return AccessEntry{}, false, nil
}

// matchingKeys returns passwords keyed prefix or prefix followed by digits.
func matchingKeys(all []Password, prefix string) []Password {
	var out []Password
	for _, p := range all {
		rest, ok := strings.CutPrefix(p.Key, prefix)
		if !ok {
			continue
		}
		if rest == "" {
			out = append(out, p)
			continue
		}
		if _, err := strconv.Atoi(rest); err == nil {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Password) int { return len(a.Key) - len(b.Key) })
	return out
}
