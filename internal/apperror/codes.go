package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Feed adapter error codes
const (
	CodeFeedConnectionFailed  Code = "FEED_CONNECTION_FAILED"
	CodeFeedSubscribeFailed   Code = "FEED_SUBSCRIBE_FAILED"
	CodeFeedSubscribeRejected Code = "FEED_SUBSCRIBE_REJECTED"
	CodeFeedSchemaMismatch    Code = "FEED_SCHEMA_MISMATCH"
	CodeFeedCurrencyMismatch  Code = "FEED_CURRENCY_MISMATCH"
	CodeFeedClosed            Code = "FEED_CLOSED"
	CodeFeedStale             Code = "FEED_STALE"
)

// Merge engine error codes
const (
	CodeMergeEmptySide      Code = "MERGE_EMPTY_SIDE"
	CodeMergeInvalidOrdinal Code = "MERGE_INVALID_ORDINAL"
)

// Fan-out / streaming error codes
const (
	CodeSubscriberSendFailed Code = "SUBSCRIBER_SEND_FAILED"
	CodeStreamClosed         Code = "STREAM_CLOSED"
)

// Circuit breaker errors
const (
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
