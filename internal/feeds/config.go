package feeds

// ExternalConfig controls where feed payloads come from.
type ExternalConfig struct {
	Enabled        bool              `json:"enabled" yaml:"enabled"`
	Endpoints      map[string]string `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	APIKeys        map[string]string `json:"api_keys,omitempty" yaml:"api_keys,omitempty"`
	RequestHeaders map[string]string `json:"request_headers,omitempty" yaml:"request_headers,omitempty"`
	// StaticPayloads short-circuits the network for the named feeds.
	StaticPayloads map[string]any `json:"static_payloads,omitempty" yaml:"static_payloads,omitempty"`
}

// RuntimeConfig controls fetch behaviour, caching and contract enforcement.
type RuntimeConfig struct {
	TimeoutSeconds    float64 `json:"timeout_seconds" yaml:"timeout_seconds"`
	Retries           int     `json:"retries" yaml:"retries"`
	BackoffSeconds    float64 `json:"backoff_seconds" yaml:"backoff_seconds"`
	CacheTTLSeconds   int     `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	DegradeGracefully bool    `json:"degrade_gracefully" yaml:"degrade_gracefully"`

	CanonicalContractMode    string   `json:"canonical_contract_mode" yaml:"canonical_contract_mode"`
	CanonicalContractDomains []string `json:"canonical_contract_domains,omitempty" yaml:"canonical_contract_domains,omitempty"`

	// Point-in-time settings. At most one of AsOf / AsOfDate may be set.
	AsOf                  string             `json:"as_of,omitempty" yaml:"as_of,omitempty"`
	AsOfDate              string             `json:"as_of_date,omitempty" yaml:"as_of_date,omitempty"`
	PublicationLagSeconds map[string]float64 `json:"publication_lag_seconds,omitempty" yaml:"publication_lag_seconds,omitempty"`

	SnapshotEnabled       bool   `json:"snapshot_enabled" yaml:"snapshot_enabled"`
	SnapshotDir           string `json:"snapshot_dir" yaml:"snapshot_dir"`
	SnapshotRetentionDays int    `json:"snapshot_retention_days" yaml:"snapshot_retention_days"`

	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond       float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BreakerFailureThreshold int     `json:"breaker_failure_threshold" yaml:"breaker_failure_threshold"`
}

// DefaultRuntimeConfig returns the default runtime settings.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		TimeoutSeconds:           2.0,
		Retries:                  1,
		BackoffSeconds:           0.2,
		CacheTTLSeconds:          300,
		DegradeGracefully:        true,
		CanonicalContractMode:    ContractWarn,
		CanonicalContractDomains: append([]string{}, AllFeeds...),
		SnapshotDir:              "data/feed_snapshots",
		SnapshotRetentionDays:    30,
		BreakerFailureThreshold:  5,
	}
}

// ContractDomains returns the configured domains, or all feeds when empty.
func (c RuntimeConfig) ContractDomains() map[string]bool {
	out := map[string]bool{}
	for _, d := range c.CanonicalContractDomains {
		if d = NormalizeDomain(d); d != "" {
			out[d] = true
		}
	}
	if len(out) == 0 {
		for _, f := range AllFeeds {
			out[f] = true
		}
	}
	return out
}

// LagSeconds returns the publication lag configured for feed.
func (c RuntimeConfig) LagSeconds(feed string) float64 {
	if lag, ok := c.PublicationLagSeconds[feed]; ok && lag > 0 {
		return lag
	}
	return 0
}
