// pkg/errors/codes.go
//
// Typed error codes for the compliance tracking platform. Codes are stable
// strings grouped by subsystem so that log pipelines and API clients can
// match on them without parsing messages.

package errors

import (
	"net/http"
	"strings"
)

// ErrorCode uniquely identifies a failure category.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common codes shared by every subsystem.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Compliance subsystem codes.
const (
	ErrCodeClientNotFound    ErrorCode = "CMP_001"
	ErrCodeTenantNotFound    ErrorCode = "CMP_002"
	ErrCodeRuleSetNotFound   ErrorCode = "CMP_003"
	ErrCodeRuleInvalid       ErrorCode = "CMP_004"
	ErrCodeScoreNotFound     ErrorCode = "CMP_005"
	ErrCodeScorePersistFailed ErrorCode = "CMP_006"
)

// Notification subsystem codes.
const (
	ErrCodeNotificationNotFound ErrorCode = "NTF_001"
	ErrCodeNotificationCreate   ErrorCode = "NTF_002"
	ErrCodeEmailPublishFailed   ErrorCode = "NTF_003"
	ErrCodeRecipientResolve     ErrorCode = "NTF_004"
)

// Job queue subsystem codes.
const (
	ErrCodeJobNotFound     ErrorCode = "JOB_001"
	ErrCodeQueueError      ErrorCode = "JOB_002"
	ErrCodeQueuePaused     ErrorCode = "JOB_003"
	ErrCodeJobPayload      ErrorCode = "JOB_004"
	ErrCodeHandlerNotFound ErrorCode = "JOB_005"
	ErrCodeJobTimeout      ErrorCode = "JOB_006"
)

// Short aliases used throughout the codebase.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeValidation   = ErrCodeValidation
	CodeOK           = ErrorCode("OK")
)

// HTTPStatus maps an error code to the HTTP status an API handler should
// respond with.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeRuleInvalid, ErrCodeJobPayload:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeClientNotFound, ErrCodeTenantNotFound,
		ErrCodeRuleSetNotFound, ErrCodeScoreNotFound, ErrCodeNotificationNotFound,
		ErrCodeJobNotFound, ErrCodeHandlerNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeQueuePaused:
		return http.StatusConflict
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrCodeTimeout, ErrCodeJobTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeServiceUnavailable, ErrCodeDatabaseError, ErrCodeCacheError,
		ErrCodeQueueError, ErrCodeExternalService, ErrCodeEmailPublishFailed:
		return http.StatusServiceUnavailable
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Subsystem returns the code prefix ("COMMON", "CMP", "NTF", "JOB").
func (c ErrorCode) Subsystem() string {
	if i := strings.IndexByte(string(c), '_'); i > 0 {
		return string(c)[:i]
	}
	return string(c)
}
