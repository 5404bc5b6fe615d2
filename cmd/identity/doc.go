// Package identity owns user accounts: creation and lookup by username.
//
// Stores operate on a caller-supplied Querier (the request's scoped connection)
// and never hold a pool. Password hashing happens before CreateUser is called;
// this package only persists and returns the hash.
package identity
