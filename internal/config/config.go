// Package config loads the operational tunables for the redo-log and
// mini-transaction subsystem from an ini file, using default-tagged
// fields paired with a parsed time.Duration twin.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Cfg holds every tunable the redo-log subsystem reads at startup.
type Cfg struct {
	Raw *ini.File

	// BufferSize is the initial size in bytes of the redo ring buffer.
	// Must be a multiple of common.OS_FILE_LOG_BLOCK_SIZE.
	BufferSize int `default:"16777216" ini:"buffer_size"`

	// RecentWrittenSlots is the capacity (M_w) of the recent_written link buffer.
	RecentWrittenSlots int `default:"8192" ini:"recent_written_slots"`

	// RecentClosedSlots is the capacity (M_c) of the recent_closed link buffer.
	RecentClosedSlots int `default:"8192" ini:"recent_closed_slots"`

	// WriteMaxSize is the writer thread's flush quantum in bytes.
	WriteMaxSize int `default:"4194304" ini:"write_max_size"`

	// SpinWaitDelay is the sleep between polls of a spin+sleep wait loop.
	SpinWaitDelay string `default:"20us" ini:"spin_wait_delay"`
	SpinWaitDelayDuration time.Duration `ini:"-"`

	// SpinWaitRounds is loaded and kept here, but no wait loop reads it:
	// every wait loop sleeps SpinWaitDelay between polls, with no
	// separate spin phase.
	SpinWaitRounds int `default:"20" ini:"spin_wait_rounds"`

	// NoLogShards is the number of counter shards used by the
	// logging-enabled switch to avoid a single hot counter.
	NoLogShards int `default:"32" ini:"no_log_shards"`

	// EnableDrainTimeout bounds how long enabling logging waits for
	// in-flight no-log mtrs to drain.
	EnableDrainTimeout string `default:"5m" ini:"enable_drain_timeout"`
	EnableDrainTimeoutDuration time.Duration `ini:"-"`

	// LogLevel configures internal/logging's verbosity.
	LogLevel string `default:"info" ini:"log_level"`
}

// Default returns a Cfg populated with the default tag values, as if
// loaded from an empty file.
func Default() *Cfg {
	c := &Cfg{
		BufferSize:          16 << 20,
		RecentWrittenSlots:  8192,
		RecentClosedSlots:   8192,
		WriteMaxSize:        4 << 20,
		SpinWaitDelay:       "20us",
		SpinWaitRounds:      20,
		NoLogShards:         32,
		EnableDrainTimeout:  "5m",
		LogLevel:            "info",
	}
	_ = c.resolveDurations()
	return c
}

// Load reads redo-log tunables from the "[redo]" section of an ini file at
// path, overlaying them on top of the defaults.
func Load(path string) (*Cfg, error) {
	c := Default()

	raw, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	c.Raw = raw

	sec := raw.Section("redo")
	if err := sec.MapTo(c); err != nil {
		return nil, fmt.Errorf("config: parse [redo] section: %w", err)
	}

	if err := c.resolveDurations(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cfg) resolveDurations() error {
	d, err := time.ParseDuration(c.SpinWaitDelay)
	if err != nil {
		return fmt.Errorf("config: spin_wait_delay: %w", err)
	}
	c.SpinWaitDelayDuration = d

	d, err = time.ParseDuration(c.EnableDrainTimeout)
	if err != nil {
		return fmt.Errorf("config: enable_drain_timeout: %w", err)
	}
	c.EnableDrainTimeoutDuration = d
	return nil
}
