package sqrlsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidNut     = "invalid_nut"
	ErrorCodeInvalidButton  = "invalid_button"
	ErrorCodeNotPending     = "not_pending"
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "conflict"
	ErrorCodeServerError    = "server_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// APIError is both what handlers write and what the client returns.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on status and code so callers can errors.Is against the
// predefined values below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WriteError writes e as a JSON error response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: e.Code, Description: e.Description})
}

// WithDescription returns a copy of e with a more specific description.
func (e *APIError) WithDescription(desc string) *APIError {
	cp := *e
	cp.Description = desc
	return &cp
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidNut = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeInvalidNut,
		Description: "the nut is unknown or has expired",
	}

	ErrInvalidButton = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidButton,
		Description: "the button does not exist on this question",
	}

	ErrNotPending = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeNotPending,
		Description: "no question is awaiting an answer for this nut",
	}

	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "a valid session is required",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "the resource does not exist",
	}

	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "the request conflicts with the current state",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "the server encountered an unexpected condition",
	}
)

func parseErrorResponse(resp *http.Response, body []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        http.StatusText(resp.StatusCode),
			Description: string(body),
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: er.Error, Description: er.Description}
}
