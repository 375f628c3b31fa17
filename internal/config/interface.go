package config

// Service defines the interface for configuration operations
type Service interface {
	Load(path string) (*Config, error)
}

// Logger defines the logging interface used by the config package
type Logger interface {
	LogInfo(msg string, fields map[string]interface{})
	LogWarn(message string, fields map[string]interface{})
}
