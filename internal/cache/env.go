package cache

import (
	"github.com/caarlos0/env/v11"
)

// DefaultDiskRoot is used when CACHE_PATH is unset.
const DefaultDiskRoot = "./cache"

// Env holds the environment settings of the cache.
type Env struct {
	Path string `env:"CACHE_PATH" envDefault:"./cache"`
}

// DefaultRoot returns the disk cache root from the environment.
func DefaultRoot() string {
	e, err := env.ParseAs[Env]()
	if err != nil || e.Path == "" {
		return DefaultDiskRoot
	}
	return e.Path
}
