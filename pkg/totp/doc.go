// Package totp implements the one-time-password primitives behind second-factor
// login: base32 secret decoding, RFC 4226/6238 code derivation, drift-window
// matching, secret and recovery-key generation, and AES-256-GCM sealing of
// secrets at rest.
//
// Everything here is pure and storage-agnostic. Replay protection lives in
// package replay, per-account state in package account.
//
// # Codes
//
// A code is derived from a base32 secret and a time-slice (unix time / 30):
//
//	slice := totp.TimeSlice(time.Now())
//	code, err := totp.GenerateCode("JBSWY3DPEHPK3PXP", slice, 6)
//
// MatchWindow accepts a submitted code when it equals the code of any slice in
// [slice-drift, slice+drift]. Offsets are tried in increasing order and the
// first match wins:
//
//	offset, ok, err := totp.MatchWindow(secret, submitted, slice, 1, 6)
//
// # Secrets and recovery keys
//
// GenerateSecret draws characters uniformly from the 32-symbol alphabet using
// crypto/rand. GenerateRecoveryKey produces lowercase hex keys; the unique
// variant retries through a KeyClaimFunc until the storage layer accepts the
// key, so uniqueness is decided by an atomic insert rather than a pre-check.
//
// # Provisioning
//
//	uri, err := totp.GetTOTPURI(totp.TOTPParams{
//	    Secret:      secret,
//	    AccountName: "alice",
//	    Issuer:      "Acme",
//	})
//
// # Error Handling
//
// Inspect errors with errors.Is against the package sentinels such as
// ErrInvalidSecret, ErrMissingSecret and ErrRecoveryKeyCollision.
//
// # See Also
//
//   - RFC 4226 – HMAC-Based One-Time Password (HOTP) Algorithm
//   - RFC 6238 – Time-Based One-Time Password (TOTP) Algorithm
//   - RFC 4648 – The Base16, Base32, and Base64 Data Encodings
package totp
