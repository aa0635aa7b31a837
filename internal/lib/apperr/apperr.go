// Package apperr описывает доменные ошибки с видом, по которому HTTP-слой
// выбирает код ответа, и безопасным для клиента сообщением.
package apperr

import (
	"errors"
	"net/http"
)

// Kind вид доменной ошибки.
type Kind int

// Виды ошибок.
const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInvalidCredentials
	KindUnverified
	KindInvalidToken
	KindInvalidOrExpiredToken
	KindUnauthenticated
	KindForbidden
)

var kindNames = map[Kind]string{
	KindInternal:              "internal",
	KindValidation:            "validation",
	KindConflict:              "conflict",
	KindNotFound:              "not found",
	KindInvalidCredentials:    "invalid credentials",
	KindUnverified:            "unverified",
	KindInvalidToken:          "invalid token",
	KindInvalidOrExpiredToken: "invalid or expired token",
	KindUnauthenticated:       "unauthenticated",
	KindForbidden:             "forbidden",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error доменная ошибка. Message показывается клиенту, Err остаётся в логах.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибку с сентинелами вида через errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Сентинелы для errors.Is.
var (
	ErrInternal              = &Error{Kind: KindInternal}
	ErrValidation            = &Error{Kind: KindValidation}
	ErrConflict              = &Error{Kind: KindConflict}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials}
	ErrUnverified            = &Error{Kind: KindUnverified}
	ErrInvalidToken          = &Error{Kind: KindInvalidToken}
	ErrInvalidOrExpiredToken = &Error{Kind: KindInvalidOrExpiredToken}
	ErrUnauthenticated       = &Error{Kind: KindUnauthenticated}
	ErrForbidden             = &Error{Kind: KindForbidden}
)

// New создаёт ошибку заданного вида.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создаёт ошибку заданного вида с причиной.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validation ошибка входных данных.
func Validation(msg string) *Error { return New(KindValidation, msg) }

// Conflict нарушение уникальности.
func Conflict(msg string) *Error { return New(KindConflict, msg) }

// NotFound отсутствующая сущность.
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// Internal непредвиденная ошибка, клиент видит только общее сообщение.
func Internal(err error) *Error { return Wrap(KindInternal, "internal error", err) }

// KindOf возвращает вид ошибки. Ошибки не из этого пакета считаются внутренними.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message возвращает сообщение для клиента.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus код ответа для ошибки. Отказы валидации, токенов и входа
// отдаются как 400, как того ожидает клиент.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict, KindNotFound, KindInvalidCredentials,
		KindUnverified, KindInvalidToken, KindInvalidOrExpiredToken:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
