package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Expiry engine error codes. The four FRESH codes form the engine taxonomy:
// validation, not found, domain rule violation, collaborator failure.
const (
	ErrCodeExpiryValidation ErrorCode = "FRESH_001"
	ErrCodeExpiryNotFound   ErrorCode = "FRESH_002"
	ErrCodeExpiryDomain     ErrorCode = "FRESH_003"
	ErrCodeExpiryDependency ErrorCode = "FRESH_004"

	ErrCodeProductNotFound      ErrorCode = "FRESH_010"
	ErrCodeActionNotFound       ErrorCode = "FRESH_011"
	ErrCodeProductDeactivated   ErrorCode = "FRESH_012"
	ErrCodeActionAlreadyUndone  ErrorCode = "FRESH_013"
	ErrCodeActionNotReversible  ErrorCode = "FRESH_014"
	ErrCodeExpiryDateRequired   ErrorCode = "FRESH_015"
	ErrCodeSettingsOutOfRange   ErrorCode = "FRESH_016"
	ErrCodeNotificationFailed   ErrorCode = "FRESH_017"
	ErrCodeLockNotAcquired      ErrorCode = "FRESH_018"
	ErrCodeArchiveFailed        ErrorCode = "FRESH_019"
)

// Short aliases used by the infrastructure layers.
const (
	CodeOK            = ErrorCode("OK")
	CodeUnknown       = ErrorCode("")
	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeUnauthorized  = ErrCodeUnauthorized
	CodeForbidden     = ErrCodeForbidden
	CodeNotFound      = ErrCodeNotFound
	CodeConflict      = ErrCodeConflict
	CodeDBQueryError  = ErrCodeDatabaseError
	CodeDBConnError   = ErrCodeDatabaseError
	CodeCacheError    = ErrCodeCacheError
	CodeMessageError  = ErrCodeExternalService
	CodeStorageError  = ErrCodeExternalService
	CodeSerialization = ErrCodeSerialization
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusBadGateway,
	ErrCodeCacheError:         http.StatusBadGateway,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeExpiryValidation:    http.StatusBadRequest,
	ErrCodeExpiryNotFound:      http.StatusNotFound,
	ErrCodeExpiryDomain:        http.StatusConflict,
	ErrCodeExpiryDependency:    http.StatusBadGateway,
	ErrCodeProductNotFound:     http.StatusNotFound,
	ErrCodeActionNotFound:      http.StatusNotFound,
	ErrCodeProductDeactivated:  http.StatusConflict,
	ErrCodeActionAlreadyUndone: http.StatusConflict,
	ErrCodeActionNotReversible: http.StatusConflict,
	ErrCodeExpiryDateRequired:  http.StatusBadRequest,
	ErrCodeSettingsOutOfRange:  http.StatusBadRequest,
	ErrCodeNotificationFailed:  http.StatusBadGateway,
	ErrCodeLockNotAcquired:     http.StatusServiceUnavailable,
	ErrCodeArchiveFailed:       http.StatusBadGateway,
}

// ErrorCodeMessage holds the default message for each ErrorCode.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeExpiryValidation:    "invalid expiry request",
	ErrCodeExpiryNotFound:      "expiry resource not found",
	ErrCodeExpiryDomain:        "expiry rule violated",
	ErrCodeExpiryDependency:    "expiry collaborator failed",
	ErrCodeProductNotFound:     "product not found",
	ErrCodeActionNotFound:      "action not found",
	ErrCodeProductDeactivated:  "cannot label a deactivated product",
	ErrCodeActionAlreadyUndone: "action already undone",
	ErrCodeActionNotReversible: "action cannot be undone",
	ErrCodeExpiryDateRequired:  "new expiry date is required",
	ErrCodeSettingsOutOfRange:  "threshold settings out of range",
	ErrCodeNotificationFailed:  "notification delivery failed",
	ErrCodeLockNotAcquired:     "product is being modified by another request",
	ErrCodeArchiveFailed:       "ledger archive failed",
}

// kindOf groups every code into one of the engine's error kinds.
var kindOf = map[ErrorCode]ErrorCode{
	ErrCodeValidation:          ErrCodeExpiryValidation,
	ErrCodeBadRequest:          ErrCodeExpiryValidation,
	ErrCodeExpiryValidation:    ErrCodeExpiryValidation,
	ErrCodeExpiryDateRequired:  ErrCodeExpiryValidation,
	ErrCodeSettingsOutOfRange:  ErrCodeExpiryValidation,
	ErrCodeNotFound:            ErrCodeExpiryNotFound,
	ErrCodeExpiryNotFound:      ErrCodeExpiryNotFound,
	ErrCodeProductNotFound:     ErrCodeExpiryNotFound,
	ErrCodeActionNotFound:      ErrCodeExpiryNotFound,
	ErrCodeConflict:            ErrCodeExpiryDomain,
	ErrCodeExpiryDomain:        ErrCodeExpiryDomain,
	ErrCodeProductDeactivated:  ErrCodeExpiryDomain,
	ErrCodeActionAlreadyUndone: ErrCodeExpiryDomain,
	ErrCodeActionNotReversible: ErrCodeExpiryDomain,
	ErrCodeDatabaseError:       ErrCodeExpiryDependency,
	ErrCodeCacheError:          ErrCodeExpiryDependency,
	ErrCodeExternalService:     ErrCodeExpiryDependency,
	ErrCodeExpiryDependency:    ErrCodeExpiryDependency,
	ErrCodeNotificationFailed:  ErrCodeExpiryDependency,
	ErrCodeLockNotAcquired:     ErrCodeExpiryDependency,
	ErrCodeArchiveFailed:       ErrCodeExpiryDependency,
	ErrCodeServiceUnavailable:  ErrCodeExpiryDependency,
	ErrCodeTimeout:             ErrCodeExpiryDependency,
}

// KindForCode returns the taxonomy kind (one of the four ErrCodeExpiry* codes)
// for code, or CodeUnknown when the code belongs to none of them.
func KindForCode(code ErrorCode) ErrorCode {
	return kindOf[code]
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
