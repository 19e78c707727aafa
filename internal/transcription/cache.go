package transcription

import (
	"fmt"
	"log/slog"
	"sync"
)

// Factory builds the provider for a model name.
type Factory func(model string) (Provider, error)

type cacheEntry struct {
	once     sync.Once
	provider Provider
	err      error
	loaded   bool // guarded by ModelCache.mu
}

// ModelCache initializes at most one provider per model for the lifetime
// of the process. A failed initialization is remembered and reported as
// ErrProviderUnavailable on every later call.
type ModelCache struct {
	factory Factory
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewModelCache creates an empty cache.
func NewModelCache(factory Factory, logger *slog.Logger) *ModelCache {
	return &ModelCache{
		factory: factory,
		logger:  logger,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the provider for model, creating it on first use.
func (c *ModelCache) Get(model string) (Provider, error) {
	c.mu.Lock()
	entry, ok := c.entries[model]
	if !ok {
		entry = &cacheEntry{}
		c.entries[model] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		c.logger.Info("Loading transcription model", slog.String("model", model))
		entry.provider, entry.err = c.factory(model)
		if entry.err != nil {
			c.logger.Error("Failed to load transcription model",
				slog.String("model", model),
				slog.String("error", entry.err.Error()))
			return
		}
		c.mu.Lock()
		entry.loaded = true
		c.mu.Unlock()
		c.logger.Info("Transcription model loaded",
			slog.String("model", model),
			slog.String("provider", entry.provider.Name()))
	})

	if entry.err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrProviderUnavailable, model, entry.err)
	}
	return entry.provider, nil
}

// Loaded returns the models whose provider initialized successfully.
func (c *ModelCache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for name, entry := range c.entries {
		if entry.loaded {
			out = append(out, name)
		}
	}
	return out
}
