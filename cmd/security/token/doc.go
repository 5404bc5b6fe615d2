// Package token issues and verifies stateless session tokens.
//
// Tokens are compact JWTs signed with HMAC-SHA256 over a process-wide secret.
// Verification checks the signature before any claim is read, accepts only
// HS256, and decodes every segment strictly so that any altered byte is rejected.
//
// Environment:
// - JWT_KEY: the shared signing secret (see SecretFromEnv).
//
// There is no revocation state: a token stays valid until it expires.
package token
