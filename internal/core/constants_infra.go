package core

import "time"

// HTTP client config constants. Backend calls are bounded per operation
// through their context, so the client itself carries no overall timeout.
const (
	HTTPMaxIdleConns          = 100
	HTTPMaxIdleConnsPerHost   = 20
	HTTPMaxConnsPerHost       = 50
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 10 * time.Second
	HTTPExpectContinueTimeout = 1 * time.Second
	HTTPDialTimeout           = 10 * time.Second
)

// Backend timeouts
const (
	DefaultGenerateTimeout = 60 * time.Second
	DefaultPullTimeout     = 30 * time.Minute
	DefaultCatalogTimeout  = 10 * time.Second
)

// Cache config constants
const (
	CacheDefaultCapacity   = 100
	DefaultCatalogCacheTTL = 30 * time.Second
	CatalogCacheKey        = "catalog"
)

// Stats and monitoring constants
const (
	StatsFilePath        = "stats.json"
	StatsRedisKey        = "modelctl:stats"
	MinSaveInterval      = 5 * time.Second
	HistoryBufferSize    = 1000
	HistoryBatchSize     = 100
	HistoryFlushInterval = 100 * time.Millisecond
	MaxHistoryRecords    = 1000
)

// Request body size limits
const (
	MaxRequestBodySize  = 4 * 1024 * 1024
	MaxResponseBodySize = 10 * 1024 * 1024
)

// Calculator constants
const (
	CalculatorProgramCacheSize = 256
	CalculatorProgramTTL       = 10 * time.Minute
	MaxExpressionLength        = 1024
)

// Tool validation constants
const (
	MaxParamNameLength = 64
	ParamNamePattern   = "^[a-zA-Z0-9_.-]{1,64}$"
)

// Logging config constants
const (
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 14
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
)

// Time format constants
const (
	TimeFormatDateTime = "2006-01-02 15:04:05"
)
