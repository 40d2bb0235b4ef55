package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// Role titles seeded by the initial migration.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
