package auth

const (
	ContextKeyUserID    = "user_id"
	ContextKeyOrgID     = "org_id"
	ContextKeyUserEmail = "user_email"

	jsonKeyError = "error"

	headerAuthorization = "Authorization"

	bearerScheme    = "bearer"
	authHeaderParts = 2
)

const (
	msgMissingAuthorization    = "missing authorization token"
	msgInvalidOrExpiredToken   = "invalid or expired token"
	msgUserNotAuthenticated    = "user not authenticated"
	msgOrgNotFound             = "organization not found"
	msgInvalidUserIDCtx        = "invalid user ID in context"
	msgInvalidOrgIDCtx         = "invalid organization ID in context"
	msgUnexpectedSigningMethod = "unexpected signing method: %v"
	msgTokenParseFailed        = "failed to parse token: %w"
	msgInvalidTokenClaims      = "invalid token claims"
)
