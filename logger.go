package fcp

// Logger receives progress and diagnostic messages.
// It is satisfied by apex/log's log.Interface.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
}

// DiscardLogger is the default logger that discards its input
var DiscardLogger Logger = logDiscarder{}

type logDiscarder struct{}

func (logDiscarder) Debugf(format string, v ...any) {}

func (logDiscarder) Infof(format string, v ...any) {}

func (logDiscarder) Warnf(format string, v ...any) {}
