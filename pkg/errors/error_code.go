package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderIntent   ErrorCode = 102
	ErrCodeInvalidWeights       ErrorCode = 103

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound       ErrorCode = 200
	ErrCodeQueryFailed        ErrorCode = 201
	ErrCodeHistoryWriteFailed ErrorCode = 202

	// Risk/order errors (500-599)
	ErrCodePositionNotFound   ErrorCode = 500
	ErrCodeOrderFailed        ErrorCode = 501
	ErrCodeAccountUnavailable ErrorCode = 502

	// Feed errors (700-799)
	ErrCodeFeedFetchFailed ErrorCode = 700
	ErrCodeFeedParseFailed ErrorCode = 701
	ErrCodeInvalidProvider ErrorCode = 702
)
