package authenticator

import (
	"fmt"

	"github.com/dmitrymomot/authpress/pkg/auth"
)

// State classifies a user who passed the primary credential check.
type State int

const (
	// NoTwoFactorRequired lets the login through unconditionally.
	NoTwoFactorRequired State = iota
	// RequiredNoSecret means 2FA is forced but the user has not set it up.
	RequiredNoSecret
	// RequiredWithSecret means a one-time code (or recovery key) must be presented.
	RequiredWithSecret
)

func (s State) String() string {
	switch s {
	case NoTwoFactorRequired:
		return "no_2fa_required"
	case RequiredNoSecret:
		return "2fa_required_no_secret"
	case RequiredWithSecret:
		return "2fa_required_with_secret"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Method records what satisfied the second factor.
type Method int

const (
	MethodNone Method = iota
	MethodGrace
	MethodTOTP
	MethodRecoveryKey
	MethodAppPassword
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodGrace:
		return "grace"
	case MethodTOTP:
		return "totp"
	case MethodRecoveryKey:
		return "recovery_key"
	case MethodAppPassword:
		return "app_password"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Result describes an accepted login.
type Result struct {
	User  *auth.User
	State State
	// Method is how the login was satisfied.
	Method Method
	// RemainingAttempts is set for grace logins; -1 means unlimited.
	RemainingAttempts int
	// Warning is a user-facing notice to show after login, such as how many
	// logins remain before 2FA setup becomes mandatory.
	Warning string
	// TwoFactorReset is true when a recovery key was consumed and 2FA is now off.
	TwoFactorReset bool
}
