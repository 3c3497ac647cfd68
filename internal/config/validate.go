package config

import (
	"fmt"
	"net/url"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Catalog.validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Sync.validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

func (c *CatalogConfig) validate() error {
	for name, raw := range map[string]string{"base_url": c.BaseURL, "api_base_url": c.APIBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL (got %q)", name, raw)
		}
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be > 0 (got %v)", c.HTTPTimeout)
	}
	return nil
}

func (s *SyncConfig) validate() error {
	if s.EnrichBatchSize <= 0 {
		return fmt.Errorf("enrich_batch_size must be > 0 (got %d)", s.EnrichBatchSize)
	}
	if s.InsertBatchSize <= 0 {
		return fmt.Errorf("insert_batch_size must be > 0 (got %d)", s.InsertBatchSize)
	}
	if s.RetryCooldown <= 0 {
		return fmt.Errorf("retry_cooldown must be > 0 (got %v)", s.RetryCooldown)
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be > 0 (got %d)", s.MaxAttempts)
	}
	if s.MaxSkippedRowRatio < 0 || s.MaxSkippedRowRatio > 1 {
		return fmt.Errorf("max_skipped_row_ratio must be within [0, 1] (got %v)", s.MaxSkippedRowRatio)
	}
	return nil
}
