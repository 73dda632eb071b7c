package httputils

// RequestError is the body of every failed request
type RequestError struct {
	Error string `json:"error"`
}
