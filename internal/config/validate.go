package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Timeline.validate(); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}

	return nil
}

func (t *TimelineConfig) validate() error {
	if t.DefaultPageSize <= 0 {
		return fmt.Errorf("default_page_size must be > 0 (got %d)", t.DefaultPageSize)
	}
	if t.MaxPageSize < t.DefaultPageSize {
		return fmt.Errorf("max_page_size must be >= default_page_size (got %d < %d)", t.MaxPageSize, t.DefaultPageSize)
	}
	if t.RebuildBatchSize <= 0 {
		return fmt.Errorf("rebuild_batch_size must be > 0 (got %d)", t.RebuildBatchSize)
	}
	switch t.OrphanPolicy {
	case "freeze", "prune":
	default:
		return fmt.Errorf("orphan_policy must be freeze or prune (got %q)", t.OrphanPolicy)
	}
	return nil
}
