package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

// Kind классифицирует ошибки обращения к бэкенду.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUnprocessable
	KindServer
	KindDecode
	KindConnectivity
	KindTimeout
	KindCanceled
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindValidation:    "validation",
	KindBadRequest:    "bad_request",
	KindUnauthorized:  "unauthorized",
	KindNotFound:      "not_found",
	KindConflict:      "conflict",
	KindUnprocessable: "unprocessable",
	KindServer:        "server",
	KindDecode:        "decode",
	KindConnectivity:  "connectivity",
	KindTimeout:       "timeout",
	KindCanceled:      "canceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrNoToken возвращается при вызове авторизованного метода без токена.
var ErrNoToken = errors.New("bearer token is empty")

// Error описывает классифицированную ошибку обращения к бэкенду.
type Error struct {
	Kind          Kind
	Op            string
	StatusCode    int
	ServerMessage string
	Err           error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.ServerMessage != "" {
		msg += ": " + e.ServerMessage
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf возвращает класс ошибки. Ошибки не из шлюза классифицируются по транспортному признаку.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return transportKind(err)
}

// IsCanceled сообщает, что операция была отменена. Отмена не является ошибкой для пользователя.
func IsCanceled(err error) bool {
	return err != nil && KindOf(err) == KindCanceled
}

// Retryable сообщает, имеет ли смысл повторить операцию.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindServer, KindConnectivity, KindTimeout:
		return true
	default:
		return false
	}
}

// Message возвращает текст ошибки для пользователя. Для отмены возвращается пустая строка.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		gwErr = &Error{Kind: transportKind(err), Err: err}
	}

	switch gwErr.Kind {
	case KindCanceled:
		return ""
	case KindValidation:
		if gwErr.ServerMessage != "" {
			return gwErr.ServerMessage
		}
		return "Please check your input"
	case KindBadRequest:
		if gwErr.ServerMessage != "" {
			return gwErr.ServerMessage
		}
		return "Invalid request"
	case KindUnauthorized:
		if errors.Is(gwErr, ErrNoToken) {
			return "Please log in to continue"
		}
		if gwErr.Op == opLogin {
			return "Invalid email or password"
		}
		return "Your session has expired. Please log in again."
	case KindNotFound:
		if gwErr.Op == opLogin {
			return "Account not found"
		}
		return "Not found"
	case KindConflict:
		if gwErr.Op == opSignup {
			return "An account with this email already exists"
		}
		return "This resource already exists"
	case KindUnprocessable:
		if gwErr.Op == opLogin {
			return "Please check your credentials"
		}
		return "Please check your input"
	case KindServer:
		return "Server error. Please try again later."
	case KindDecode:
		return "Unexpected response from server"
	case KindConnectivity:
		return "No internet connection"
	case KindTimeout:
		return "Request timed out. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

func statusKind(code int) Kind {
	switch {
	case code == http.StatusBadRequest:
		return KindBadRequest
	case code == http.StatusUnauthorized:
		return KindUnauthorized
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusConflict:
		return KindConflict
	case code == http.StatusUnprocessableEntity:
		return KindUnprocessable
	case code >= 500 && code <= 599:
		return KindServer
	default:
		return KindUnknown
	}
}

func transportKind(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnectivity
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindConnectivity
	}

	return KindUnknown
}
