// Package auth issues and verifies the access and refresh tokens carried in
// cookies, hashes admin passwords and tracks revoked tokens.
package auth
