// Package auth contains the stateless credential primitives of the server:
// bcrypt password hashing and HS256 bearer token issuance and validation.
//
// Nothing here touches storage. The signing key, issuer and audience are
// fixed at construction and shared read-only by all callers.
package auth
