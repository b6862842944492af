package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	RegionUS = "US"
	RegionUK = "UK"
	RegionDE = "DE"

	// RegionAll disables region filtering.
	RegionAll = "ALL"
)

// RegionConfig maps a region code to its lead time in days
type RegionConfig map[string]int

// DefaultRegionConfig returns the stock US/UK/DE lead times.
func DefaultRegionConfig() RegionConfig {
	return RegionConfig{RegionUS: 40, RegionUK: 14, RegionDE: 14}
}

// LeadTime returns the lead time for a region or a *ConfigurationError.
func (c RegionConfig) LeadTime(region string) (int, error) {
	lt, ok := c[region]
	if !ok {
		return 0, &ConfigurationError{Region: region}
	}
	return lt, nil
}

// Regions returns the configured region codes sorted alphabetically.
func (c RegionConfig) Regions() []string {
	out := make([]string, 0, len(c))
	for r := range c {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Validate checks that every lead time is positive.
func (c RegionConfig) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("region config is empty")
	}
	for region, lt := range c {
		if strings.TrimSpace(region) == "" {
			return fmt.Errorf("region config contains an empty region code")
		}
		if lt <= 0 {
			return fmt.Errorf("region %s: lead time must be > 0, got %d", region, lt)
		}
	}
	return nil
}

// String renders the config back in "DE:14,UK:14,US:40" form.
func (c RegionConfig) String() string {
	parts := make([]string, 0, len(c))
	for _, r := range c.Regions() {
		parts = append(parts, r+":"+strconv.Itoa(c[r]))
	}
	return strings.Join(parts, ",")
}

// ParseRegionConfig parses "US:40,UK:14,DE:14" into a validated RegionConfig.
func ParseRegionConfig(raw string) (RegionConfig, error) {
	cfg := make(RegionConfig)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid region entry %q, expected REGION:DAYS", part)
		}
		region := strings.ToUpper(strings.TrimSpace(kv[0]))
		days, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid lead time for region %s: %w", region, err)
		}
		cfg[region] = days
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
