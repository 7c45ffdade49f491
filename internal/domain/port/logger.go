package port

// Logger is the printf-style logging sink shared by every layer.
// Messages below the configured level are dropped.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})

	// SetLevel accepts debug, info, warn or error
	SetLevel(level string)

	// Close releases any file the logger writes to
	Close() error
}
