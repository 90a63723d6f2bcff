// Package logger provides structured logging for resilix components
// using zerolog.
//
// Library components never log through a global: the registry and the
// timeout strategy accept an optional *Logger and fall back to Nop().
//
//	log := logger.NewDefault().WithComponent("registry")
//	log.Info("pipeline built", logger.Fields("key", "payments"))
package logger
