// Package account holds per-user second-factor state and the operations that
// change it.
//
// State covers the TOTP secret, the user's opt-in flag, the count of logins
// made without a configured secret, and the single live recovery key. The
// record is keyed by the host's user ID and never owns the identity itself.
//
// Service builds on a Store:
//
//	svc := account.NewService(account.NewRedisStore(client), provider)
//	enr, err := svc.Enable(ctx, user) // secret, otpauth URI, recovery key
//
// The attempt counter is only ever changed with compare-and-swap
// (Store.CompareAndSwapAttempts) inside a bounded retry loop, so concurrent
// logins cannot lose an increment or overspend the grace budget. Recovery keys
// are unique across all accounts through an atomic claim on a global index.
//
// Every storage failure is returned wrapped in ErrStorageUnavailable.
package account
