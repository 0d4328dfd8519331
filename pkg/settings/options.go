package settings

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/authpress/pkg/config"
)

// EnvPrefix is prepended to every option's environment variable.
const EnvPrefix = "AUTHPRESS_"

// UnlimitedAttempts as MaxAttempts lets accounts without a secret log in indefinitely.
const UnlimitedAttempts = -1

// RoleStatus selects who forced 2FA applies to.
type RoleStatus string

const (
	RoleStatusAll   RoleStatus = "all"   // every user
	RoleStatusRoles RoleStatus = "roles" // only users holding one of UserRoles
)

// ReplayScope selects how far a consumed code is remembered.
type ReplayScope string

const (
	ReplayPerAccount ReplayScope = "account"
	ReplayGlobal     ReplayScope = "global"
)

// Options is the site-wide second-factor configuration.
type Options struct {
	Active            bool        `env:"ACTIVE" envDefault:"true"`
	Force2FA          bool        `env:"FORCE_2FA" envDefault:"false"`
	UserRoleStatus    RoleStatus  `env:"USER_ROLE_STATUS" envDefault:"all"`
	UserRoles         []string    `env:"USER_ROLES" envSeparator:","`
	MaxAttempts       int         `env:"MAX_ATTEMPTS" envDefault:"3"`
	AuthorizedDelay   int         `env:"AUTHORIZED_DELAY" envDefault:"1"` // drift, in 30-second slices
	Issuer            string      `env:"ISSUER" envDefault:"authpress"`
	CodeLength        int         `env:"CODE_LENGTH" envDefault:"6"`
	SecretLength      int         `env:"SECRET_LENGTH" envDefault:"16"`
	RecoveryKeyLength int         `env:"RECOVERY_KEY_LENGTH" envDefault:"24"`
	AppPasswordLogMax int         `env:"APP_PASSWORD_LOG_MAX" envDefault:"50"`
	ReplayScope       ReplayScope `env:"REPLAY_SCOPE" envDefault:"account"`
}

// Defaults returns the options used when nothing is configured.
func Defaults() Options {
	return Options{
		Active:            true,
		UserRoleStatus:    RoleStatusAll,
		MaxAttempts:       3,
		AuthorizedDelay:   1,
		Issuer:            "authpress",
		CodeLength:        6,
		SecretLength:      16,
		RecoveryKeyLength: 24,
		AppPasswordLogMax: 50,
		ReplayScope:       ReplayPerAccount,
	}
}

// FromEnv loads options from AUTHPRESS_* variables and validates them.
func FromEnv() (Options, error) {
	var o Options
	if err := config.LoadWithPrefix(&o, EnvPrefix); err != nil {
		return Options{}, err
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate rejects combinations the engine cannot act on.
func (o Options) Validate() error {
	var errs []error

	switch o.UserRoleStatus {
	case RoleStatusAll, RoleStatusRoles:
	default:
		errs = append(errs, fmt.Errorf("user role status %q", o.UserRoleStatus))
	}
	switch o.ReplayScope {
	case ReplayPerAccount, ReplayGlobal:
	default:
		errs = append(errs, fmt.Errorf("replay scope %q", o.ReplayScope))
	}
	if o.MaxAttempts < UnlimitedAttempts {
		errs = append(errs, fmt.Errorf("max attempts %d", o.MaxAttempts))
	}
	if o.AuthorizedDelay < 0 {
		errs = append(errs, fmt.Errorf("authorized delay %d", o.AuthorizedDelay))
	}
	if o.CodeLength < 6 || o.CodeLength > 8 {
		errs = append(errs, fmt.Errorf("code length %d", o.CodeLength))
	}
	if o.SecretLength < 16 {
		errs = append(errs, fmt.Errorf("secret length %d", o.SecretLength))
	}
	if o.RecoveryKeyLength < 12 {
		errs = append(errs, fmt.Errorf("recovery key length %d", o.RecoveryKeyLength))
	}
	if o.AppPasswordLogMax < 1 {
		errs = append(errs, fmt.Errorf("app password log max %d", o.AppPasswordLogMax))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidOptions}, errs...)...)
	}
	return nil
}

// Unlimited reports whether grace logins are unbounded.
func (o Options) Unlimited() bool {
	return o.MaxAttempts == UnlimitedAttempts
}

// Drift is the number of slices accepted either side of the current one.
func (o Options) Drift() int {
	return max(o.AuthorizedDelay, 0)
}

// GlobalReplay reports whether consumed codes are shared across accounts.
func (o Options) GlobalReplay() bool {
	return o.ReplayScope == ReplayGlobal
}

// IsForced reports whether 2FA is mandatory for a user holding roles.
// With force off it is never mandatory. With status "all", or no roles
// configured, it applies to everyone; otherwise the role sets must intersect.
func (o Options) IsForced(roles []string) bool {
	if !o.Force2FA {
		return false
	}
	if o.UserRoleStatus == RoleStatusAll || len(o.UserRoles) == 0 {
		return true
	}
	for _, r := range roles {
		if slices.ContainsFunc(o.UserRoles, func(want string) bool {
			return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(r))
		}) {
			return true
		}
	}
	return false
}
