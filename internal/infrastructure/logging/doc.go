// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Reconcile pass complete", zap.Int("corrected", n))
//	logger.Error("Tab creation failed", zap.Error(err))
package logging
