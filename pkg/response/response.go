package response

import "travelcms/pkg/pagination"

// Response represents a standard API response format
type Response struct {
	Status     string            `json:"status"`             // "success" or "error"
	StatusCode int               `json:"status_code"`        // HTTP status code
	Data       interface{}       `json:"data,omitempty"`
	Meta       *pagination.Meta  `json:"meta,omitempty"`
	Messages   []string          `json:"messages,omitempty"` // flash messages queued for the page
	Error      string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`   // first failed rule per form field
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Paginated returns a success response carrying page metadata
func Paginated(statusCode int, data interface{}, meta pagination.Meta) Response {
	res := Success(statusCode, data)
	res.Meta = &meta
	return res
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Invalid returns an error response listing the fields that failed validation
func Invalid(statusCode int, err string, fields map[string]string) Response {
	res := Error(statusCode, err)
	res.Fields = fields
	return res
}

// WithMessages attaches flash messages to the response
func (r Response) WithMessages(messages []string) Response {
	r.Messages = messages
	return r
}
