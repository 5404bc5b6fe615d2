// Package dbsession scopes one database connection to one HTTP request.
//
// A Manager acquires a connection from the shared pool before any handler logic runs,
// applies the fixed session settings (strict string semantics and a fixed time-zone offset),
// exposes the connection through the request context, and releases it exactly once when the
// handler returns, fails, or panics. No connection is ever held across requests.
//
// Handlers never see the pool. They obtain the scoped connection with ConnFrom.
package dbsession
