package config

import (
	"errors"
	"time"

	"valve/pkg/units"
)

var (
	ErrInvalidChunkSize  = errors.New("chunk size must be greater than 0")
	ErrInvalidWindow     = errors.New("rate window must be positive")
	ErrInvalidRenderTick = errors.New("render tick must be positive")
	ErrNegativeMagnitude = errors.New("rate magnitude must not be negative")
	ErrNegativeTotalSize = errors.New("total size hint must not be negative")
)

// Config holds the full application configuration, assembled once at startup
// from flags, environment and the optional config file. After session
// creation it is never mutated; live changes travel the command queue.
type Config struct {
	Rate     RateConfig     `json:"rate"`
	Transfer TransferConfig `json:"transfer"`
	UI       UIConfig       `json:"ui"`
}

// RateConfig is the initial throughput target.
type RateConfig struct {
	Magnitude float64    `json:"magnitude"`
	Unit      units.Unit `json:"unit"`
	Unlimited bool       `json:"unlimited"`
}

// TransferConfig tunes the copy loop.
type TransferConfig struct {
	TotalSize   int64         `json:"total_size"`   // optional hint, 0 = unknown
	StartPaused bool          `json:"start_paused"` // begin in the paused state
	ChunkSize   int           `json:"chunk_size"`
	Window      time.Duration `json:"window"` // smoothed-rate trailing window
}

// UIConfig controls the control surface.
type UIConfig struct {
	NoUI       bool          `json:"no_ui"` // force the non-interactive fallback
	Quiet      bool          `json:"quiet"` // no progress output at all
	RenderTick time.Duration `json:"render_tick"`
}

// NewDefaultConfig returns a configuration with sensible defaults: no rate
// limit, a 64 KiB chunk, a 5 second smoothing window and a 100ms render tick.
func NewDefaultConfig() *Config {
	return &Config{
		Rate: RateConfig{
			Unlimited: true,
		},
		Transfer: TransferConfig{
			ChunkSize: 64 * 1024,
			Window:    5 * time.Second,
		},
		UI: UIConfig{
			RenderTick: 100 * time.Millisecond,
		},
	}
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	if c.Transfer.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Transfer.Window <= 0 {
		return ErrInvalidWindow
	}
	if c.UI.RenderTick <= 0 {
		return ErrInvalidRenderTick
	}
	if c.Rate.Magnitude < 0 {
		return ErrNegativeMagnitude
	}
	if c.Transfer.TotalSize < 0 {
		return ErrNegativeTotalSize
	}
	return nil
}
