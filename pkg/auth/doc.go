// Package auth describes the primary-credential boundary authpress sits behind.
//
// The host system owns user identities and primary passwords. authpress only
// needs to look users up (UserProvider) and check their password
// (PasswordVerifier); both are small interfaces the host implements over its
// own user table.
//
// Hasher is the salted-hash primitive shared with app passwords.
// BcryptHasher implements it with golang.org/x/crypto/bcrypt.
//
// MemoryDirectory implements UserProvider and PasswordVerifier in memory for
// tests and local tooling:
//
//	dir := auth.NewMemoryDirectory(auth.NewBcryptHasher(bcrypt.MinCost))
//	alice, _ := dir.Add("alice", "s3cret", "editor")
//	err := dir.VerifyPassword(ctx, alice, "s3cret")
package auth
