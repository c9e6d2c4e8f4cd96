package logger

import "go.uber.org/zap"

// New builds the process-wide zap logger. Development gets the console
// encoder, everything else structured JSON.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
