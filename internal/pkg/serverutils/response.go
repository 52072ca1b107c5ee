package serverutils

type Response struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func SuccessResponse(message string, data any) *Response {
	return &Response{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) *Response {
	return &Response{
		Success: false,
		Code:    code,
		Message: message,
	}
}

func ErrorResponseWithData(code int, message string, data any) *Response {
	r := ErrorResponse(code, message)
	r.Data = data
	return r
}
