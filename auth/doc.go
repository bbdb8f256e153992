// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth resolves the caller identity and generates record IDs.

# Bearer Tokens

Tokens are HS256 JWTs signed with the configured secret. The subject is the
user id; type and role travel as extra claims:

	token, err := auth.GenerateToken(secret, principal, 24*time.Hour)
	principal, err := auth.ParseToken(secret, token)

The poll engine trusts the resolved principal and does no further credential
checks. Issuing tokens belongs to the account service; GenerateToken exists for
tooling and tests.

# ID Generation

Random UUIDs for database records:

	id := auth.GenerateID()
*/
package auth
