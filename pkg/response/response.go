// Package response defines the envelope every HTTP reply is wrapped in.
package response

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the uniform reply envelope. Data is set on success replies
// and Error on failures; the HTTP status code is mirrored into the body so
// clients reading buffered responses keep the code next to the payload.
type Response struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success wraps payload data for a 2xx reply.
func Success(code int, data interface{}) Response {
	return Response{Status: statusSuccess, StatusCode: code, Data: data}
}

// Error wraps a failure message.
func Error(code int, msg string) Response {
	return Response{Status: statusError, StatusCode: code, Error: msg}
}
