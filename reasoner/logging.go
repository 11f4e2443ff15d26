package reasoner

import "go.uber.org/zap"

// NewDevelopmentLogger returns a zap logger configured for local runs:
// human-readable, debug level, stack traces on warnings and above.
func NewDevelopmentLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = false
	return cfg.Build()
}

// NewProductionLogger returns a zap logger configured for services: JSON
// encoding, info level, sampled.
func NewProductionLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}
