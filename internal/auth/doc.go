// Package auth provides authentication and authorisation for the admin API.
//
// Operators are declared in the security section of the config with an
// Argon2id password hash and a role. A successful login returns a short-lived
// HS256 JWT carrying the role; every protected route checks the role against
// a static role-permission map, so no request touches the database.
//
// Roles, from least to most privileged:
//   - viewer: read Home Assistant data (server.read)
//   - admin:  viewer plus the system summary (system.read)
//   - owner:  everything
package auth
