package types

// Envelope is the uniform body returned by every HTTP endpoint.
type Envelope struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Data       any    `json:"data"`
}
