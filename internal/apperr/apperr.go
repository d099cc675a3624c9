// Package apperr описывает таксономию ошибок, общую для сервера и консоли.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind обозначает категорию ошибки.
type Kind string

const (
	KindAuth          Kind = "auth"
	KindValidation    Kind = "validation"
	KindTransport     Kind = "transport"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// Error несёт категорию, сообщение для пользователя и исходную причину.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	cause   error
}

// New создаёт ошибку указанной категории.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Wrap создаёт ошибку указанной категории поверх исходной причины.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.cause = cause
	return e
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap отдаёт исходную причину для errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is сравнивает ошибки по категории, чтобы работал errors.Is(err, apperr.ErrForbidden).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == string(t.Kind) && t.Kind == e.Kind
}

// Эталонные значения категорий для errors.Is.
var (
	ErrAuth          = New(KindAuth, "")
	ErrValidation    = New(KindValidation, "")
	ErrTransport     = New(KindTransport, "")
	ErrForbidden     = New(KindAuthorization, "")
	ErrNotFound      = New(KindNotFound, "")
	ErrConflict      = New(KindConflict, "")
	ErrInternal      = New(KindInternal, "")
)

// Missing создаёт ошибку валидации, перечисляющую все незаполненные поля.
func Missing(fields ...string) *Error {
	e := New(KindValidation, "missing required fields: "+strings.Join(fields, ", "))
	e.Fields = fields
	return e
}

// Validation создаёт ошибку валидации с произвольным сообщением.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Forbidden создаёт ошибку отказа в доступе.
func Forbidden(message string) *Error {
	return New(KindAuthorization, message)
}

// KindOf возвращает категорию ошибки; неизвестные ошибки считаются внутренними.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение для пользователя.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}

// StatusCode сопоставляет категорию ошибки с HTTP-статусом.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromStatus восстанавливает категорию ошибки по HTTP-статусу ответа сервера.
func FromStatus(code int, message string) *Error {
	if message == "" {
		message = http.StatusText(code)
	}
	switch {
	case code == http.StatusUnauthorized:
		return New(KindAuth, message)
	case code == http.StatusForbidden:
		return New(KindAuthorization, message)
	case code == http.StatusNotFound:
		return New(KindNotFound, message)
	case code == http.StatusConflict:
		return New(KindConflict, message)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return New(KindValidation, message)
	default:
		return New(KindTransport, message)
	}
}
