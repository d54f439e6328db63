package core

// Generation defaults applied when the request omits them.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)

// GenerateRequest is the body of POST /models/{name}/generate.
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// NewGenerateRequest returns a request carrying the default options.
func NewGenerateRequest(prompt string) GenerateRequest {
	return GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// GenerateResponse is the result of a successful generation.
type GenerateResponse struct {
	Response       string  `json:"response"`
	Model          string  `json:"model"`
	TokensUsed     int     `json:"tokens_used"`
	ProcessingTime float64 `json:"processing_time"`
}

// BackendModel is one entry of the backend's local model catalog.
type BackendModel struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// Completion is the backend's answer to a generate call.
type Completion struct {
	Text       string
	EvalTokens int
}
