package view

// ApiResponse is the envelope every HTTP endpoint returns.
type ApiResponse[T any] struct {
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Request any    `json:"request,omitempty"`
	Message string `json:"message,omitempty"`
}

func CreateResponse[T any](data T, err error, request any, message string) ApiResponse[T] {
	resp := ApiResponse[T]{
		Data:    data,
		Request: request,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
