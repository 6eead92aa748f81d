// Package logger is coffer's levelled console logger.
//
// Warnings and errors always print. Infof output needs --verbose and Debugf
// output needs --debug, which also turns on Infof. Prefixes are coloured
// with fatih/color.
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Re-encrypted %d record sets", count)
//	return log.ErrorfAndReturn("opening store: %v", err)
//
// The root command builds one Logger in PersistentPreRun and hands it to the
// session and workflows. Tests point Out and Err at buffers.
//
// Never pass a password or key to a log method.
package logger
