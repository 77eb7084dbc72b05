package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Feed adapter errors
	CodeFeedConnectionFailed:  "Failed to connect to exchange feed",
	CodeFeedSubscribeFailed:   "Failed to send subscribe frame",
	CodeFeedSubscribeRejected: "Exchange rejected the subscription",
	CodeFeedSchemaMismatch:    "Feed payload did not match the expected schema",
	CodeFeedCurrencyMismatch:  "Feed payload currency did not match the configured pair",
	CodeFeedClosed:            "Feed connection closed",
	CodeFeedStale:             "Feed has not produced a frame within the liveness window",

	// Merge engine errors
	CodeMergeEmptySide:      "Merged side has no levels from any venue",
	CodeMergeInvalidOrdinal: "Snapshot carried an exchange ordinal outside the configured set",

	// Fan-out / streaming errors
	CodeSubscriberSendFailed: "Failed to deliver summary to subscriber",
	CodeStreamClosed:         "Streaming connection closed",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
