package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrPlanRequired     = fmt.Errorf("paid plan required")
	ErrLimitReached     = fmt.Errorf("limit reached")
	ErrNotFound         = fmt.Errorf("not found")

	// Upstream completion API errors.
	ErrAuthInvalid      = fmt.Errorf("upstream authentication failed")
	ErrCreditsExhausted = fmt.Errorf("upstream credits exhausted")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrUpstreamServer   = fmt.Errorf("upstream server error")
	ErrNetwork          = fmt.Errorf("network failure")
	ErrProtocol         = fmt.Errorf("unexpected upstream response")
	ErrMissingAPIKey    = fmt.Errorf("upstream api key not configured")
	ErrProviderNotFound = fmt.Errorf("llm provider not found")

	// Infrastructure errors.
	ErrConfigLoad = fmt.Errorf("failed to load configuration")
	ErrDecryption = fmt.Errorf("decryption failed")
	ErrQuotaStore = fmt.Errorf("quota store failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "ScriptService.Generate")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient upstream error that
// may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrUpstreamServer) ||
		errors.Is(err, ErrNetwork)
}

// ErrorCode is a machine-parseable error category for monitoring and
// client-side handling.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodePlanRequired     ErrorCode = "PLAN_REQUIRED"
	CodeLimitReached     ErrorCode = "LIMIT_REACHED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAuthInvalid      ErrorCode = "AUTH_INVALID"
	CodeCreditsExhausted ErrorCode = "CREDITS_EXHAUSTED"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeUpstreamServer   ErrorCode = "UPSTREAM_SERVER"
	CodeNetwork          ErrorCode = "NETWORK"
	CodeProtocol         ErrorCode = "PROTOCOL"
	CodeMissingAPIKey    ErrorCode = "MISSING_API_KEY"
	CodeProviderNotFound ErrorCode = "PROVIDER_NOT_FOUND"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeDecryption       ErrorCode = "DECRYPTION"
	CodeQuotaStore       ErrorCode = "QUOTA_STORE"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrInvalidInput:     CodeInvalidInput,
	ErrPermissionDenied: CodePermissionDenied,
	ErrPlanRequired:     CodePlanRequired,
	ErrLimitReached:     CodeLimitReached,
	ErrNotFound:         CodeNotFound,
	ErrAuthInvalid:      CodeAuthInvalid,
	ErrCreditsExhausted: CodeCreditsExhausted,
	ErrRateLimit:        CodeRateLimit,
	ErrUpstreamServer:   CodeUpstreamServer,
	ErrNetwork:          CodeNetwork,
	ErrProtocol:         CodeProtocol,
	ErrMissingAPIKey:    CodeMissingAPIKey,
	ErrProviderNotFound: CodeProviderNotFound,
	ErrConfigLoad:       CodeConfigLoad,
	ErrDecryption:       CodeDecryption,
	ErrQuotaStore:       CodeQuotaStore,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	// Unwrap DomainError to check its inner sentinel.
	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
