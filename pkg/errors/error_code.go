package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidAction        ErrorCode = 120
	ErrCodeInvalidBarSize       ErrorCode = 121
	ErrCodeInvalidDataType      ErrorCode = 122
	ErrCodeInvalidDuration      ErrorCode = 123

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeNoDataFound           ErrorCode = 204

	// Trading errors (500-599)
	ErrCodeOrderFailed        ErrorCode = 500
	ErrCodePositionNotFound   ErrorCode = 501
	ErrCodeMarketDataMissing  ErrorCode = 502
	ErrCodeOrderTimeout       ErrorCode = 503
	ErrCodeBrokerNotConnected ErrorCode = 504
	ErrCodeConnectionFailed   ErrorCode = 505
	ErrCodeUnsupportedBroker  ErrorCode = 506
	ErrCodeLedgerWriteFailed  ErrorCode = 510
	ErrCodeLedgerReadFailed   ErrorCode = 511

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 704
)
