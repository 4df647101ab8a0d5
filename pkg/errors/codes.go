package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string identifier of a specific error condition.  The prefix
// before the underscore names the owning module (COMMON, RULE, ENG, AI, AUD).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_012"

	ErrCodeOK      ErrorCode = "OK"
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// Rule-store error codes.  A "not found" rule lookup is a valid response for
// dependent stages (Found=false), so these codes appear only when the store
// itself misbehaves or a caller asks for something structurally invalid.
const (
	ErrCodeRuleStoreQuery       ErrorCode = "RULE_001"
	ErrCodeChapterNotesNotFound ErrorCode = "RULE_002"
	ErrCodeSectionNotFound      ErrorCode = "RULE_003"
	ErrCodeHeadingNotFound      ErrorCode = "RULE_004"
	ErrCodeChapterInvalid       ErrorCode = "RULE_005"
	ErrCodeRuleStoreUnavailable ErrorCode = "RULE_006"
)

// Elimination-engine error codes.
const (
	ErrCodeNoCandidates      ErrorCode = "ENG_001"
	ErrCodeCandidateInvalid  ErrorCode = "ENG_002"
	ErrCodeStageFailed       ErrorCode = "ENG_003"
	ErrCodeProductIncomplete ErrorCode = "ENG_004"
)

// AI collaborator error codes (consultation + devil's advocate).
const (
	ErrCodeAINotConfigured    ErrorCode = "AI_001"
	ErrCodeAIRequestFailed    ErrorCode = "AI_002"
	ErrCodeAIResponseInvalid  ErrorCode = "AI_003"
	ErrCodeAIResponseEmpty    ErrorCode = "AI_004"
	ErrCodeChallengeFailed    ErrorCode = "AI_005"
	ErrCodeAIQuotaExhausted   ErrorCode = "AI_006"
)

// Audit-sink error codes.  Audit failures are logged and swallowed by the
// engine; these codes exist so sinks can report precisely what went wrong.
const (
	ErrCodeAuditSerialize   ErrorCode = "AUD_001"
	ErrCodeAuditAppend      ErrorCode = "AUD_002"
	ErrCodeAuditUnavailable ErrorCode = "AUD_003"
)

// errorCodeHTTPStatus maps ErrorCodes to HTTP status codes for the API layer.
var errorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeRuleStoreQuery:       http.StatusInternalServerError,
	ErrCodeChapterNotesNotFound: http.StatusNotFound,
	ErrCodeSectionNotFound:      http.StatusNotFound,
	ErrCodeHeadingNotFound:      http.StatusNotFound,
	ErrCodeChapterInvalid:       http.StatusBadRequest,
	ErrCodeRuleStoreUnavailable: http.StatusServiceUnavailable,

	ErrCodeNoCandidates:      http.StatusBadRequest,
	ErrCodeCandidateInvalid:  http.StatusBadRequest,
	ErrCodeStageFailed:       http.StatusInternalServerError,
	ErrCodeProductIncomplete: http.StatusBadRequest,

	ErrCodeAINotConfigured:   http.StatusServiceUnavailable,
	ErrCodeAIRequestFailed:   http.StatusBadGateway,
	ErrCodeAIResponseInvalid: http.StatusBadGateway,
	ErrCodeAIResponseEmpty:   http.StatusBadGateway,
	ErrCodeChallengeFailed:   http.StatusBadGateway,
	ErrCodeAIQuotaExhausted:  http.StatusServiceUnavailable,

	ErrCodeAuditSerialize:   http.StatusInternalServerError,
	ErrCodeAuditAppend:      http.StatusInternalServerError,
	ErrCodeAuditUnavailable: http.StatusServiceUnavailable,
}

// errorCodeMessage maps ErrorCodes to default messages.
var errorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeRuleStoreQuery:       "rule store query failed",
	ErrCodeChapterNotesNotFound: "chapter notes not found",
	ErrCodeSectionNotFound:      "section not found",
	ErrCodeHeadingNotFound:      "heading not found",
	ErrCodeChapterInvalid:       "invalid chapter number",
	ErrCodeRuleStoreUnavailable: "rule store unavailable",

	ErrCodeNoCandidates:      "no classification candidates supplied",
	ErrCodeCandidateInvalid:  "invalid classification candidate",
	ErrCodeStageFailed:       "elimination stage failed",
	ErrCodeProductIncomplete: "product information incomplete",

	ErrCodeAINotConfigured:   "AI consultation not configured",
	ErrCodeAIRequestFailed:   "AI request failed",
	ErrCodeAIResponseInvalid: "AI response could not be parsed",
	ErrCodeAIResponseEmpty:   "AI returned an empty response",
	ErrCodeChallengeFailed:   "devil's-advocate challenge failed",
	ErrCodeAIQuotaExhausted:  "AI quota exhausted",

	ErrCodeAuditSerialize:   "failed to serialize audit record",
	ErrCodeAuditAppend:      "failed to append audit record",
	ErrCodeAuditUnavailable: "audit sink unavailable",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := errorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError reports whether the ErrorCode maps to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether the ErrorCode maps to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode ("RULE", "ENG", …).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
