package utils

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads the optional .env file at path and primes viper with
// environment variables. Missing .env is not an error.
func LoadConfig(path string) {
	envFile := filepath.Join(path, ".env")
	if err := godotenv.Load(envFile); err == nil {
		logrus.Debugf("[APP] Loaded environment from %s", envFile)
	}

	viper.AutomaticEnv()
}
