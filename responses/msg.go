package responses

type Message struct {
	Type    string            `json:"type"` // "error", "warning", etc
	Message string            `json:"message"`
	Code    int               `json:"code"`             // application-level logic code
	Fields  map[string]string `json:"fields,omitempty"` // per-field problems of a rejected payload
}

// Application-level codes
const (
	CodeNone = iota
	CodeInvalidPayload
	CodeUnknownLayout
	CodeTemplateUnavailable
	CodeLayoutMismatch
	CodeThrottled
)
