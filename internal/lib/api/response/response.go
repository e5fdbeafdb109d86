package response

// Response is the uniform JSON envelope of the API.
type Response struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

func Ok(data interface{}) Response {
	return Response{
		Status: "OK",
		Data:   data,
	}
}

func Error(msg string) Response {
	return Response{
		Status: "Error",
		Error:  msg,
	}
}
