// Package types provides common type definitions for the folio-share system.
package types

// Visibility represents who can see a portfolio.
type Visibility string

const (
	// VisibilityPrivate restricts a portfolio to its owner
	VisibilityPrivate Visibility = "PRIVATE"
	// VisibilityPublic makes a portfolio readable by anyone
	VisibilityPublic Visibility = "PUBLIC"
	// VisibilitySmartShared restricts read access to holders of an active share token
	VisibilitySmartShared Visibility = "SMART_SHARED"
)

// VolatilityLevel buckets a portfolio risk score into a coarse label.
type VolatilityLevel string

const (
	// VolatilityLow covers risk scores below 30
	VolatilityLow VolatilityLevel = "Low"
	// VolatilityMedium covers risk scores from 30 up to 70
	VolatilityMedium VolatilityLevel = "Medium"
	// VolatilityHigh covers risk scores of 70 and above
	VolatilityHigh VolatilityLevel = "High"
)

// Service error codes shared between the service and API layers.
const (
	// ErrCodeConfiguration indicates missing provider credentials; fatal to a whole batch fetch
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	// ErrCodeQuoteFetchFailed marks a single symbol whose provider fetch failed
	ErrCodeQuoteFetchFailed = "QUOTE_FETCH_FAILED"
	// ErrCodeShareNotFound means no share record matches a token
	ErrCodeShareNotFound = "SHARE_NOT_FOUND"
	// ErrCodeShareRevoked means the share record exists but has been deactivated
	ErrCodeShareRevoked = "SHARE_REVOKED"
	// ErrCodeShareExpired means the share record's expiry is in the past
	ErrCodeShareExpired = "SHARE_EXPIRED"
	// ErrCodePortfolioNotFound means no portfolio matches the requested ID
	ErrCodePortfolioNotFound = "PORTFOLIO_NOT_FOUND"
	// ErrCodeUserNotFound means no user matches the requested ID
	ErrCodeUserNotFound = "USER_NOT_FOUND"
	// ErrCodeForbidden indicates an ownership mismatch on an owner-only operation
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeUnauthorized indicates a missing or invalid caller identity
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeInvalidInput indicates malformed request input
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeInternal indicates an unexpected internal failure
	ErrCodeInternal = "INTERNAL_ERROR"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a ServiceError with the given code and message.
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}
