package remote

import (
	"encoding/json"
	"net/http"
	"strings"

	goEnroll "github.com/MrEthical07/goEnroll"
)

// errorBody is the JSON error shape of the account service. Login redirects
// carry the extra fields.
type errorBody struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	Username             string `json:"username"`
	ProfileCompleted     *bool  `json:"profileCompleted"`
	IDVerified           *bool  `json:"idVerified"`
	IDVerificationStatus string `json:"idVerificationStatus"`
}

func decodeErrorBody(body []byte) errorBody {
	var out errorBody
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return out
	}
	if err := json.Unmarshal(body, &out); err != nil {
		out = errorBody{Message: trimmed}
	}
	return out
}

func statusKind(code int) error {
	switch {
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return goEnroll.ErrServiceInvalid
	case code == http.StatusUnauthorized:
		return goEnroll.ErrServiceUnauthorized
	case code == http.StatusForbidden:
		return goEnroll.ErrServiceForbidden
	case code == http.StatusNotFound:
		return goEnroll.ErrServiceNotFound
	case code == http.StatusConflict:
		return goEnroll.ErrServiceConflict
	case code == http.StatusTooManyRequests:
		return goEnroll.ErrServiceRateLimited
	case code == http.StatusRequestTimeout, code >= 500:
		return goEnroll.ErrServiceUnavailable
	default:
		return nil
	}
}

func statusError(code int, body []byte) *goEnroll.ServiceError {
	return &goEnroll.ServiceError{
		StatusCode: code,
		Message:    decodeErrorBody(body).Message,
		Kind:       statusKind(code),
	}
}

func unavailable(err error) *goEnroll.ServiceError {
	return &goEnroll.ServiceError{
		Kind: goEnroll.ErrServiceUnavailable,
		Err:  err,
	}
}

// loginRedirect turns a 403 login body into the typed redirect error, or nil
// when the body is an ordinary rejection.
func loginRedirect(body []byte, username string) error {
	eb := decodeErrorBody(body)
	if eb.Username == "" {
		eb.Username = username
	}
	switch {
	case eb.ProfileCompleted != nil && !*eb.ProfileCompleted:
		return &goEnroll.ProfileIncompleteError{Username: eb.Username}
	case eb.IDVerified != nil && !*eb.IDVerified:
		return &goEnroll.IdentityUnverifiedError{Username: eb.Username, Status: eb.IDVerificationStatus}
	}
	return nil
}
