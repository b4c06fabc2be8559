package response

// Response represents a standard API response format
type Response struct {
	Status     string            `json:"status"`      // "success" or "error"
	StatusCode int               `json:"status_code"` // HTTP status code
	Data       interface{}       `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Code       string            `json:"code,omitempty"`   // stable machine-readable error code
	Fields     map[string]string `json:"fields,omitempty"` // validation failures, field -> message
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithCode adds the error code and optional field messages clients use to localize.
func ErrorWithCode(statusCode int, code, err string, fields map[string]string) Response {
	res := Error(statusCode, err)
	res.Code = code
	if len(fields) > 0 {
		res.Fields = fields
	}
	return res
}
