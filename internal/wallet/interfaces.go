// Package wallet manages the connection to an injected wallet provider:
// the live session, wallet events, and network switching.
package wallet

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLog struct{}

func (nopLog) Debug(string, ...any) {}
func (nopLog) Error(string, ...any) {}

// OpRecorder records wallet operation outcomes.
type OpRecorder interface {
	RecordWalletOp(operation string, err error)
}
