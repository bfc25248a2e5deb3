package sending

import "github.com/btcsuite/btclog"

// Subsystem defines the logging code for this subsystem.
const Subsystem = "SEND"

// log is a logger that is initialized with no output filters. This means the
// package will not perform any logging by default until the caller requests
// it.
var log = btclog.Disabled

// DisableLog disables all library log output. Logging output is disabled by
// default until UseLogger is called.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// logClosure defers building an expensive log argument until the message
// is actually emitted.
type logClosure func() string

// String implements fmt.Stringer.
func (c logClosure) String() string {
	return c()
}

// newLogClosure wraps c as a lazily evaluated log argument.
func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
