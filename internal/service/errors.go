package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

// 错误文案即对外暴露的机器可读错误码，客户端按字符串匹配
var (
	ErrParamInvalid            = errors.New("INVALID_REQUEST")
	ErrTokenRequired           = errors.New("AUTHENTICATION_TOKEN_REQUIRED")
	UnauthorizedError          = errors.New("AUTHENTICATION_FAILED")
	ErrAccessDenied            = errors.New("Access denied to conversation")
	ErrInvalidParticipantCount = errors.New("INVALID_PARTICIPANT_COUNT")
	ErrConversationAccess      = errors.New("CONVERSATION_NOT_FOUND_OR_USER_NOT_AUTHORIZED")
	ErrConversationNotFound    = errors.New("CONVERSATION_NOT_FOUND")
	ErrMessageNotFound         = errors.New("MESSAGE_NOT_FOUND")
	UnExpectedError            = errors.New("OPERATION_FAILED")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:            BadRequest,
	ErrTokenRequired:           Unauthorized,
	UnauthorizedError:          Unauthorized,
	ErrAccessDenied:            Forbidden,
	ErrInvalidParticipantCount: BadRequest,
	ErrConversationAccess:      Forbidden,
	ErrConversationNotFound:    NotFound,
	ErrMessageNotFound:         NotFound,
	UnExpectedError:            InternalServerError,
}
