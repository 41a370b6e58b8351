package errors

import (
	"net/http"

	"github.com/lggm33/DUAD/pkg/responders"
)

// ErrorResponse is the JSON envelope every failure returns. Clients branch
// on the machine-readable code; the message is for humans.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code, message, and optional context for a failure.
type ErrorDetail struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse builds the envelope for one failure.
func NewErrorResponse(code ErrorCode, message string, details map[string]interface{}) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: code.IsRetryable(),
			Details:   details,
		},
	}
}

// WriteJSON renders the envelope with the HTTP status its code maps to.
func (e ErrorResponse) WriteJSON(w http.ResponseWriter) {
	responders.JSON(w, e.Error.Code.HTTPStatus(), e)
}

// WriteError writes an error response in one call.
func WriteError(w http.ResponseWriter, code ErrorCode, message string, details map[string]interface{}) {
	NewErrorResponse(code, message, details).WriteJSON(w)
}

// WriteSimpleError writes an error with no additional details.
func WriteSimpleError(w http.ResponseWriter, code ErrorCode, message string) {
	WriteError(w, code, message, nil)
}

// WriteErrorWithDetail writes an error with a single detail field.
func WriteErrorWithDetail(w http.ResponseWriter, code ErrorCode, message string, key string, value interface{}) {
	WriteError(w, code, message, map[string]interface{}{key: value})
}

// WriteDomainError maps a service-layer error to its HTTP response. Errors
// without a domain code render as a generic 500 so internal detail never
// reaches clients.
func WriteDomainError(w http.ResponseWriter, err error) {
	WriteError(w, CodeOf(err), MessageOf(err), DetailsOf(err))
}
