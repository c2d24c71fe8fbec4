package httpx

import "net/http"

// HTTPError carries an HTTP status code and a stable machine-readable key.
// The key is what API clients switch on; the status code is transport detail.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // stable error key (e.g. "quota_exceeded")
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

// Errors covering the failure taxonomy of this API. Handlers translate
// domain sentinel errors into one of these before rendering.
var (
	ErrBadRequest         = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized       = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden          = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound           = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict           = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrPreconditionFailed = HTTPError{Code: http.StatusForbidden, Key: "precondition_failed"}
	ErrQuotaExceeded      = HTTPError{Code: http.StatusForbidden, Key: "quota_exceeded"}
	ErrBadGateway         = HTTPError{Code: http.StatusBadGateway, Key: "gateway_error"}
	ErrInternal           = HTTPError{Code: http.StatusInternalServerError, Key: "internal_error"}
)

// NewHTTPError creates a custom HTTP error with the given status code and key.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}
