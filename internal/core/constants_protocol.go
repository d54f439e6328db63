package core

// Default config constants
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = "8000"
	DefaultGinMode          = "release"
	DefaultModelsConfigPath = "models.json"
	DefaultOllamaBaseURL    = "http://localhost:11434"
	DefaultServerURL        = "http://localhost:8000"
	CORSMaxAge              = "86400"
)

// Service identity, used by the MCP endpoint and the health check
const (
	ServiceName    = "modelctl"
	ServiceVersion = "1.0.0"
)

// Content type and header constants
const (
	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"
	HeaderContentType      = "Content-Type"
	HeaderAuthorization    = "Authorization"
	HeaderAccept           = "Accept"
	HeaderXAPIKey          = "x-api-key"
	HeaderRequestID        = "X-Request-ID"
	AuthBearerPrefix       = "Bearer "
)

// Ollama API paths
const (
	OllamaTagsPath     = "/api/tags"
	OllamaPullPath     = "/api/pull"
	OllamaGeneratePath = "/api/generate"
	OllamaLatestSuffix = ":latest"
)

// Request kinds tracked in the request history
const (
	RequestKindGenerate = "generate"
	RequestKindTool     = "tool"
)
