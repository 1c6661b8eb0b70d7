package errors

// ConfigError reports a setting, metric or path that cannot be resolved.
type ConfigError struct {
	ErrorMsg string
}

func (m *ConfigError) Error() string {
	return m.ErrorMsg
}

// UsageError reports bad command line arguments.
type UsageError struct {
	ErrorMsg string
}

func (m *UsageError) Error() string {
	return m.ErrorMsg
}
