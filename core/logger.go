package core

// Logger is implemented by every logging service.
// Expected args: error, map[string]interface{}, session.User (set as the logged in person).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
