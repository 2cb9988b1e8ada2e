// Package cleanup provides the background retention worker.
package cleanup

import (
	"time"

	"github.com/JonathanYesh279/tenuto-go/pkg/config"
)

// Config tunes the retention worker.
type Config struct {
	SweepInterval         time.Duration
	OperationRetention    time.Duration
	NotificationRetention time.Duration
	VerboseReporting      bool
}

// DefaultConfig builds the worker configuration from the environment-backed
// defaults.
func DefaultConfig() *Config {
	return &Config{
		SweepInterval:         config.RegistrySweepInterval,
		OperationRetention:    config.OperationRetention,
		NotificationRetention: config.NotificationRetention,
	}
}
