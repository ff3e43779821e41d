package config

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	initialized = false
	once        sync.Once
)

// InitEnv wires viper to the process environment. Call once at startup
// before reading any configuration value.
func InitEnv() {
	if initialized {
		log.Debug().Msg("Env already initialized!")
		return
	}
	once.Do(func() {
		viper.AutomaticEnv()
		viper.SetDefault("APP_NAME", "chemicalx")
		viper.SetDefault("APP_LOG_LEVEL", "INFO")
		initialized = true
	})
}

// AppName returns the configured application name
func AppName() string {
	return viper.GetString("APP_NAME")
}

// LogLevel returns the configured log level
func LogLevel() string {
	return viper.GetString("APP_LOG_LEVEL")
}
