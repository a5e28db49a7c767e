// Package http exposes the account operations over a JSON API built on gin.
//
// Routes live under /api/auth. Every response carries the envelope
// {isSuccess, message, token, user}; failures map domain errors onto status
// codes (400 validation or policy, 401 bad credentials or token, 404 missing
// account, 409 taken email, 503 store unavailable).
package http
