// Package password hashes and verifies account passwords with bcrypt.
//
// Hashes are self-describing bcrypt strings ($2a$10$...) carrying their own salt
// and cost, so Verify needs no configuration beyond the input bounds.
//
// Security notes:
// - Plaintext and hashes are never logged by this package.
// - Hash strings are treated as untrusted input during Verify.
package password
