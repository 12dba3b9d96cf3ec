package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternalServer    = errors.New("internal server error")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrUserNotFound      = errors.New("user not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrChatNotFound      = errors.New("chat not found")
	ErrInviteeOffline    = errors.New("invitee offline")
	ErrNotGroupMember    = errors.New("not a member of the group")
	ErrNotMessageSender  = errors.New("only the sender can modify a message")
	ErrMessageDeleted    = errors.New("message already deleted")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotMessageSender), errors.Is(err, ErrNotGroupMember):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrMessageDeleted):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
