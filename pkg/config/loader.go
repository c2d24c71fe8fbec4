package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// Load populates the given configuration struct from environment variables
// using caarlos0/env struct tags. A .env file in the working directory is
// loaded once per process before the first parse; a missing file is not an
// error so that production deployments can rely on real environment variables.
//
// Example:
//
//	type ServerConfig struct {
//		Addr      string `env:"HTTP_ADDR" envDefault:":8080"`
//		JWTSecret string `env:"JWT_SECRET,required"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	return nil
}

// MustLoad is like Load but panics on failure. Intended for application
// startup where a misconfigured environment should prevent the process
// from serving traffic at all.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
