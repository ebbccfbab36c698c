package config

import "time"

// SchedulerConfig controls the sync scheduler loop.
//
// PoolSize bounds the concurrent in-flight syncs across all sources;
// sources beyond the pool wait for a worker rather than being skipped.
// Jitter is the upper bound of the random delay added on top of a
// source's configured interval so that many sources created at the same
// time do not all fire on the same tick.
type SchedulerConfig struct {
	PoolSize int
	Tick     time.Duration
	Jitter   time.Duration
}

// LoadSchedulerConfig reads scheduler settings from the environment.
func LoadSchedulerConfig() SchedulerConfig {
	cfg := SchedulerConfig{
		PoolSize: envInt("SYNC_POOL_SIZE", 4),
		Tick:     envDur("SYNC_TICK", time.Minute),
		Jitter:   envDur("SYNC_JITTER_MAX", 2*time.Minute),
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return cfg
}

// FetchConfig controls the source fetcher's outbound HTTP behaviour.
type FetchConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// LoadFetchConfig reads fetcher settings from the environment.
func LoadFetchConfig() FetchConfig {
	cfg := FetchConfig{
		Timeout:      envDur("FETCH_TIMEOUT", 15*time.Second),
		UserAgent:    envStr("FETCH_USER_AGENT", "circuit-sync/1.0"),
		MaxBodyBytes: int64(envInt("FETCH_MAX_BODY_BYTES", 2<<20)),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes < 1024 {
		cfg.MaxBodyBytes = 1024
	}
	return cfg
}

// DedupConfig controls the notification suppression window: how long an
// identical observation stays suppressed after an intent has been
// emitted for it.
type DedupConfig struct {
	Window time.Duration
	Prefix string
}

// LoadDedupConfig reads dedup settings from the environment.
func LoadDedupConfig() DedupConfig {
	cfg := DedupConfig{
		Window: envDur("NOTIFY_DEDUP_WINDOW", 6*time.Hour),
		Prefix: envStr("NOTIFY_DEDUP_PREFIX", "dedup"),
	}
	if cfg.Window <= 0 {
		cfg.Window = 6 * time.Hour
	}
	return cfg
}
