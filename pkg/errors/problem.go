package errors

import (
	"net/http"
)

// Problem type URIs
const (
	TypeValidationError = "https://api.pincex.io/problems/validation-error"
	TypeNotFound        = "https://api.pincex.io/problems/not-found"
	TypeInternalError   = "https://api.pincex.io/problems/internal-error"
	TypeUnavailable     = "https://api.pincex.io/problems/service-unavailable"
	TypeConflict        = "https://api.pincex.io/problems/conflict"
)

// ProblemDetails is an RFC 7807 response body.
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Kind     string       `json:"kind,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// HTTPStatus maps an error kind onto the HTTP status the admin API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnknownOrder, KindUnknownRequestID, KindOrderNotFound:
		return http.StatusNotFound
	case KindInvalidOrder, KindMalformedIdentifier, KindMissingField, KindInvalidField:
		return http.StatusBadRequest
	case KindDuplicateOrder:
		return http.StatusConflict
	case KindTransportUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewProblem converts err into problem details for the given request path.
func NewProblem(err error, instance string) *ProblemDetails {
	status := HTTPStatus(err)
	p := &ProblemDetails{
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   err.Error(),
		Instance: instance,
		Kind:     KindOf(err),
	}
	switch status {
	case http.StatusNotFound:
		p.Type = TypeNotFound
	case http.StatusBadRequest:
		p.Type = TypeValidationError
	case http.StatusConflict:
		p.Type = TypeConflict
	case http.StatusServiceUnavailable:
		p.Type = TypeUnavailable
	default:
		p.Type = TypeInternalError
	}
	var e *Error
	if As(err, &e) {
		if e.Message != "" {
			p.Detail = e.Message
		}
		p.Errors = e.Fields
	}
	return p
}
