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

// Pricing-specific error codes
const (
	// Token and graph errors
	CodeTokenNotFound   Code = "TOKEN_NOT_FOUND"
	CodeNoLiquidityPath Code = "NO_LIQUIDITY_PATH"
	CodeInvalidReserves Code = "INVALID_RESERVES"
	CodeInvalidPath     Code = "INVALID_PATH"

	// Snapshot errors
	CodeStaleSnapshot         Code = "STALE_SNAPSHOT"
	CodeSnapshotDecodeFailed  Code = "SNAPSHOT_DECODE_FAILED"
	CodeSnapshotUnavailable   Code = "SNAPSHOT_UNAVAILABLE"
	CodeVaultFetchFailed      Code = "VAULT_FETCH_FAILED"
	CodeOracleUnavailable     Code = "ORACLE_UNAVAILABLE"
	CodeChainFeedDisconnected Code = "CHAIN_FEED_DISCONNECTED"

	// Stacks API errors
	CodeStacksAPIError     Code = "STACKS_API_ERROR"
	CodeStacksRateLimited  Code = "STACKS_RATE_LIMITED"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
