package logger

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter writes fx container events as structured entries. Failures
// are logged at ERROR; everything else only shows up at DEBUG.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter returns the adapter as an fxevent.Logger.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent implements fxevent.Logger.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	var (
		msg    string
		fields = Fields{}
		err    error
	)
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		msg, fields["hook"] = "OnStart hook executing", trimFuncSuffix(e.FunctionName)
	case *fxevent.OnStartExecuted:
		msg, fields["hook"], err = "OnStart hook", trimFuncSuffix(e.FunctionName), e.Err
		fields["runtime"] = e.Runtime
	case *fxevent.OnStopExecuting:
		msg, fields["hook"] = "OnStop hook executing", trimFuncSuffix(e.FunctionName)
	case *fxevent.OnStopExecuted:
		msg, fields["hook"], err = "OnStop hook", trimFuncSuffix(e.FunctionName), e.Err
	case *fxevent.Supplied:
		msg, fields["type"], err = "Supplied", e.TypeName, e.Err
	case *fxevent.Provided:
		msg, fields["types"], err = "Provided", strings.Join(e.OutputTypeNames, ", "), e.Err
	case *fxevent.Decorated:
		msg, fields["types"], err = "Decorated", strings.Join(e.OutputTypeNames, ", "), e.Err
	case *fxevent.Invoking:
		msg, fields["function"] = "Invoking", trimFuncSuffix(e.FunctionName)
	case *fxevent.Invoked:
		msg, fields["function"], err = "Invoked", trimFuncSuffix(e.FunctionName), e.Err
	case *fxevent.Stopping:
		msg, fields["signal"] = "Stopping", e.Signal.String()
	case *fxevent.Stopped:
		msg, err = "Stopped", e.Err
	case *fxevent.RollingBack:
		msg, err = "Start failed, rolling back", e.StartErr
	case *fxevent.RolledBack:
		msg, err = "Rolled back", e.Err
	case *fxevent.Started:
		msg, err = "Container started", e.Err
	case *fxevent.LoggerInitialized:
		msg, err = "fx logger initialized", e.Err
	default:
		return
	}

	entry := base.WithFields(fields).WithField("component", "fx")
	if err != nil {
		entry.WithError(err).Log(log.ErrorLevel, msg+" failed")
		return
	}
	entry.Log(log.DebugLevel, msg)
}

// trimFuncSuffix drops the ".funcN" part fx appends for closures.
func trimFuncSuffix(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
