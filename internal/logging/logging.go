// Package logging provides the three-logger split (info/warn/error) used
// throughout the engine, grounded in the teacher's BaseCore construction
// (three *os.OpenFile targets, one *log.Logger each with date|time|shortfile
// flags). Unlike the teacher, loggers are passed explicitly to the device
// and the app aggregator rather than stashed on a global singleton (§9).
package logging

import (
	"io"
	"log"
	"os"
)

// Loggers bundles the three severity-tagged loggers a Device and App use.
type Loggers struct {
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
}

const logFlags = log.Ldate | log.Ltime | log.Lshortfile

// NewStdLoggers builds a Loggers writing all three severities to w (typically
// os.Stderr), each with its own prefix. Use this for tests and short-lived
// tools where per-severity log files would be overkill.
func NewStdLoggers(w io.Writer) *Loggers {
	return &Loggers{
		Info:  log.New(w, "INFO: ", logFlags),
		Warn:  log.New(w, "WARNING: ", logFlags),
		Error: log.New(w, "ERROR: ", logFlags),
	}
}

// NewFileLoggers opens (creating/appending) info_log.txt, warn_log.txt and
// error_log.txt in the current working directory, matching the teacher's
// BaseCore log file layout exactly.
func NewFileLoggers() (*Loggers, error) {
	info, err := os.OpenFile("info_log.txt", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	warn, err := os.OpenFile("warn_log.txt", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	errf, err := os.OpenFile("error_log.txt", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	return &Loggers{
		Info:  log.New(info, "INFO: ", logFlags),
		Warn:  log.New(warn, "WARNING: ", logFlags),
		Error: log.New(errf, "ERROR: ", logFlags),
	}, nil
}
