package errors

// ErrorResponse is the body of every failed API response
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
