// Package logger provides the structured logging interface used across emmakit.
//
// It wraps zerolog. Every enabled record is written to the console (stderr);
// when LoggingConfig.File is set, error-level records are also appended to
// that file so failed seeds and skipped chunks survive a long harvest.
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info", File: "harvest-errors.log"})
//	logger.WithField("seed", "nasa").Warn("follower fetch failed, skipping")
//
// Components accept a Logger and fall back to GetLogger() when given nil.
// Tests use NewTestLogger to assert on what was logged.
package logger
