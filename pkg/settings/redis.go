package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding site-wide options.
const DefaultRedisKey = "authpress:options"

// Hash fields understood by RedisProvider. Names mirror the environment variables.
const (
	FieldActive            = "active"
	FieldForce2FA          = "force_2fa"
	FieldUserRoleStatus    = "user_role_status"
	FieldUserRoles         = "user_roles"
	FieldMaxAttempts       = "max_attempts"
	FieldAuthorizedDelay   = "authorized_delay"
	FieldIssuer            = "issuer"
	FieldCodeLength        = "code_length"
	FieldSecretLength      = "secret_length"
	FieldRecoveryKeyLength = "recovery_key_length"
	FieldAppPasswordLogMax = "app_password_log_max"
	FieldReplayScope       = "replay_scope"
)

// RedisProvider reads options from a Redis hash on every call.
// Fields absent from the hash keep the fallback value.
type RedisProvider struct {
	client   redis.UniversalClient
	key      string
	fallback Options
}

// RedisOption configures a RedisProvider.
type RedisOption func(*RedisProvider)

// WithRedisKey overrides DefaultRedisKey.
func WithRedisKey(key string) RedisOption {
	return func(p *RedisProvider) {
		if key != "" {
			p.key = key
		}
	}
}

// NewRedisProvider creates a provider that overlays the hash onto fallback.
func NewRedisProvider(client redis.UniversalClient, fallback Options, opts ...RedisOption) *RedisProvider {
	p := &RedisProvider{client: client, key: DefaultRedisKey, fallback: fallback}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisProvider) Options(ctx context.Context) (Options, error) {
	fields, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return Options{}, errors.Join(ErrProviderUnavailable, err)
	}

	o, err := overlay(p.fallback, fields)
	if err != nil {
		return Options{}, err
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Save writes every option to the hash.
func (p *RedisProvider) Save(ctx context.Context, o Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := p.client.HSet(ctx, p.key, encode(o)).Err(); err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	return nil
}

func encode(o Options) map[string]any {
	return map[string]any{
		FieldActive:            yesNo(o.Active),
		FieldForce2FA:          yesNo(o.Force2FA),
		FieldUserRoleStatus:    string(o.UserRoleStatus),
		FieldUserRoles:         strings.Join(o.UserRoles, ","),
		FieldMaxAttempts:       o.MaxAttempts,
		FieldAuthorizedDelay:   o.AuthorizedDelay,
		FieldIssuer:            o.Issuer,
		FieldCodeLength:        o.CodeLength,
		FieldSecretLength:      o.SecretLength,
		FieldRecoveryKeyLength: o.RecoveryKeyLength,
		FieldAppPasswordLogMax: o.AppPasswordLogMax,
		FieldReplayScope:       string(o.ReplayScope),
	}
}

func overlay(o Options, fields map[string]string) (Options, error) {
	var errs []error

	boolField := func(name string, dst *bool) {
		if v, ok := fields[name]; ok {
			b, err := parseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	intField := func(name string, dst *int) {
		if v, ok := fields[name]; ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}

	boolField(FieldActive, &o.Active)
	boolField(FieldForce2FA, &o.Force2FA)
	intField(FieldMaxAttempts, &o.MaxAttempts)
	intField(FieldAuthorizedDelay, &o.AuthorizedDelay)
	intField(FieldCodeLength, &o.CodeLength)
	intField(FieldSecretLength, &o.SecretLength)
	intField(FieldRecoveryKeyLength, &o.RecoveryKeyLength)
	intField(FieldAppPasswordLogMax, &o.AppPasswordLogMax)

	if v, ok := fields[FieldUserRoleStatus]; ok {
		o.UserRoleStatus = RoleStatus(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := fields[FieldReplayScope]; ok {
		o.ReplayScope = ReplayScope(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := fields[FieldIssuer]; ok {
		o.Issuer = v
	}
	if v, ok := fields[FieldUserRoles]; ok {
		o.UserRoles = splitList(v)
	}

	if len(errs) > 0 {
		return Options{}, errors.Join(append([]error{ErrInvalidOptions}, errs...)...)
	}
	return o, nil
}

// parseBool also accepts the "yes"/"no" values the admin screens store.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off", "":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
