package kernel

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config gathers the fixed-capacity and timeout parameters that, on the
// hardware core, are compile-time constants. Here they are
// resolved once at kernel construction time, from DefaultConfig overridden
// by an optional TOML file and/or functional Options.
type Config struct {
	// MaxThreads is the fixed registry capacity.
	MaxThreads int `toml:"max_threads"`
	// MaxThreadPriority is the upper bound of the priority range [1, P].
	MaxThreadPriority int `toml:"max_thread_priority"`
	// MinStackSize is the minimum valid thread stack, in bytes.
	MinStackSize int `toml:"min_stack_size"`

	// ThreadTimeout is the default scheduler-critlock acquisition timeout.
	ThreadTimeout time.Duration `toml:"thread_timeout"`
	// ExclSectionTimeout bounds the exclusive-section mutual-exclusion wait.
	ExclSectionTimeout time.Duration `toml:"excl_section_timeout"`
	// ExclSectionAckTimeout bounds the cross-core acknowledgment wait.
	ExclSectionAckTimeout time.Duration `toml:"excl_section_ack_timeout"`
	// ExclSectionLockTimeout bounds the exclusive-section edit-lock wait.
	ExclSectionLockTimeout time.Duration `toml:"excl_section_lock_timeout"`

	// TickResolution is the simulated duration of one Tick, for SystemClock.
	TickResolution time.Duration `toml:"tick_resolution"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxThreads:             16,
		MaxThreadPriority:      32,
		MinStackSize:           256,
		ThreadTimeout:          100 * time.Millisecond,
		ExclSectionTimeout:     50 * time.Millisecond,
		ExclSectionAckTimeout:  50 * time.Millisecond,
		ExclSectionLockTimeout: 10 * time.Millisecond,
		TickResolution:         time.Millisecond,
	}
}

// LoadConfig reads a TOML file and overlays it on DefaultConfig; fields
// absent from the file keep their default value. A missing or malformed
// file is reported as CodeInvalidArg, since the failure is in the caller's
// input, not an internal kernel fault.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, newErr("LoadConfig", CodeInvalidArg, err.Error())
	}
	return cfg, nil
}

// Option customizes a Config after defaults/file loading, mirroring the
// functional-options shape used for every other configurable constructor in
// this package.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(cfg *Config) { f(cfg) }

// WithMaxThreads overrides Config.MaxThreads.
func WithMaxThreads(n int) Option {
	return optionFunc(func(cfg *Config) { cfg.MaxThreads = n })
}

// WithMaxThreadPriority overrides Config.MaxThreadPriority.
func WithMaxThreadPriority(n int) Option {
	return optionFunc(func(cfg *Config) { cfg.MaxThreadPriority = n })
}

// WithThreadTimeout overrides Config.ThreadTimeout.
func WithThreadTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *Config) { cfg.ThreadTimeout = d })
}

// WithExclSectionTimeouts overrides all three exclusive-section timeouts.
func WithExclSectionTimeouts(section, ack, lock time.Duration) Option {
	return optionFunc(func(cfg *Config) {
		cfg.ExclSectionTimeout = section
		cfg.ExclSectionAckTimeout = ack
		cfg.ExclSectionLockTimeout = lock
	})
}

// WithTickResolution overrides Config.TickResolution.
func WithTickResolution(d time.Duration) Option {
	return optionFunc(func(cfg *Config) { cfg.TickResolution = d })
}

func resolveOptions(cfg Config, opts []Option) Config {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&cfg)
	}
	return cfg
}
