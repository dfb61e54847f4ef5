package types

// Category represents service categories
type Category string

const (
	CategoryFilesystem Category = "filesystem"
	CategoryMedia      Category = "media"
)

// Parameter types understood by argument validation
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Service represents a service definition
type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
}

// Tool represents a service tool. ID is the name callers use on the wire.
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
	Destructive bool        `json:"destructive,omitempty"`
}

// Parameter represents a tool parameter
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Items       string      `json:"items,omitempty"` // element type for arrays
}

// Context provides execution context for a tool call
type Context struct {
	CallID    string `json:"call_id,omitempty"`
	Transport string `json:"transport,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
}

// Result is the response envelope: a text payload plus an error flag. Providers may
// set Data instead of Text; the registry renders it as JSON.
type Result struct {
	Text    string      `json:"text"`
	IsError bool        `json:"isError"`
	Data    interface{} `json:"-"`
}

// Text wraps a plain success message.
func Text(text string) *Result {
	return &Result{Text: text}
}

// Structured wraps a value rendered as JSON by the registry.
func Structured(data interface{}) *Result {
	return &Result{Data: data}
}

// Failure wraps an error message with the failure marker.
func Failure(message string) *Result {
	return &Result{Text: "❌ " + message, IsError: true}
}
