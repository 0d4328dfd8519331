// Package authenticator decides whether a user who passed the primary
// password check may finish logging in.
//
// Engine classifies the user into one of three states and acts on it:
//
//   - NoTwoFactorRequired: the login proceeds.
//   - RequiredNoSecret: 2FA is forced but not set up. A bounded number of grace
//     logins is allowed (MaxAttempts, -1 for unlimited), then
//     ErrMaxAttemptsExceeded.
//   - RequiredWithSecret: a code within the drift window is required. A code is
//     accepted once per replay bucket. The account's recovery key is also
//     accepted; it turns 2FA off and is consumed.
//
// Flow wraps the engine with the username/password check and, for API
// clients, the app-password fallback.
//
//	engine := authenticator.New(accounts, guard, provider)
//	flow := authenticator.NewFlow(directory, directory, engine,
//	    authenticator.WithAppPasswords(apps))
//	res, err := flow.Login(ctx, authenticator.Credentials{
//	    Username: "alice",
//	    Password: "secret",
//	    Code:     &code,
//	})
//	if err != nil {
//	    show(authenticator.Message(err))
//	}
//
// Storage failures surface as ErrStorageUnavailable and are never reported as
// a wrong credential.
package authenticator
