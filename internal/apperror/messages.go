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

	// Token and graph errors
	CodeTokenNotFound:   "Token is not present in the current snapshot",
	CodeNoLiquidityPath: "No liquidity path to an anchor token",
	CodeInvalidReserves: "Pool reserves are zero or negative",
	CodeInvalidPath:     "Path does not connect the requested tokens",

	// Snapshot errors
	CodeStaleSnapshot:         "Snapshot is older than the staleness limit",
	CodeSnapshotDecodeFailed:  "Failed to decode cached snapshot",
	CodeSnapshotUnavailable:   "No snapshot available yet",
	CodeVaultFetchFailed:      "Failed to fetch vault reserves",
	CodeOracleUnavailable:     "Anchor price oracle unavailable",
	CodeChainFeedDisconnected: "Chain tip feed disconnected",

	// Stacks API errors
	CodeStacksAPIError:     "Stacks API error",
	CodeStacksRateLimited:  "Stacks API rate limit exceeded",
	CodeContractCallFailed: "Read-only contract call failed",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
