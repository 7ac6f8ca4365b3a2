package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// typeCache holds one parsed value per config struct type so the same
// struct loaded from several packages sees identical values.
type typeCache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	cache = &typeCache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}

	dotenvOnce sync.Once
)

// Load populates v from environment variables using caarlos0/env field
// tags. The first call of any type loads .env (if present) and parses
// the environment; later calls for the same type return the cached copy.
//
//	type WorkerConfig struct {
//		PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
//		BatchSize    int           `env:"QUEUE_BATCH_SIZE" envDefault:"10"`
//	}
//
//	var cfg WorkerConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// Missing .env is fine, real deployments set the environment directly
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	typeName := typeNameOf[T]()

	cache.mu.RLock()
	if cached, ok := cache.values[typeName]; ok {
		*v = cached.(T)
		cache.mu.RUnlock()
		return nil
	}
	cache.mu.RUnlock()

	cache.mu.Lock()
	once, exists := cache.onces[typeName]
	if !exists {
		once = new(sync.Once)
		cache.onces[typeName] = once
	}
	cache.mu.Unlock()

	var err error
	once.Do(func() {
		if parseErr := env.Parse(v); parseErr != nil {
			err = errors.Join(ErrParsingConfig, parseErr)
			return
		}

		cache.mu.Lock()
		cache.values[typeName] = *v
		cache.mu.Unlock()
	})

	if err != nil {
		return err
	}

	cache.mu.RLock()
	defer cache.mu.RUnlock()
	if cached, ok := cache.values[typeName]; ok {
		*v = cached.(T)
		return nil
	}

	// The once ran in a concurrent call and failed there.
	return ErrConfigNotLoaded
}

// MustLoad works like Load but panics on failure. Use for configuration
// the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeNameOf[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
