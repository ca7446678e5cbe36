package stream

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/samber/mo"

	"github.com/dacapoday/kvstream"
	"github.com/dacapoday/kvstream/keyrange"
)

// Config is the file form of a stream's options.
//
//	collection = "items"
//	direction = "prev"
//	lower = "a"
//	upper = "m"
//	upper_open = true
//	reopen_on_timeout = true
//	high_water_mark = 32
//
// Absent bounds leave that side of the range unbounded.
type Config struct {
	Collection      string  `toml:"collection"`
	Direction       string  `toml:"direction"`
	Lower           *string `toml:"lower"`
	Upper           *string `toml:"upper"`
	LowerOpen       bool    `toml:"lower_open"`
	UpperOpen       bool    `toml:"upper_open"`
	ReopenOnTimeout *bool   `toml:"reopen_on_timeout"`
	HighWaterMark   int     `toml:"high_water_mark"`
}

// LoadConfig decodes a Config from TOML.
func LoadConfig(data []byte) (cfg Config, err error) {
	if err = toml.Unmarshal(data, &cfg); err != nil {
		err = errors.Wrap(err, "decode stream config")
	}
	return
}

// LoadConfigFile reads a Config from a TOML file.
func LoadConfigFile(path string) (cfg Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrap(err, "read stream config")
		return
	}
	return LoadConfig(data)
}

// Range builds the configured key range.
func (cfg Config) Range() (keyrange.Range, error) {
	return keyrange.New(bound(cfg.Lower), bound(cfg.Upper), cfg.LowerOpen, cfg.UpperOpen)
}

func bound(s *string) mo.Option[[]byte] {
	if s == nil {
		return mo.None[[]byte]()
	}
	return mo.Some([]byte(*s))
}

// Options converts cfg to stream options. Unset fields keep their defaults.
func (cfg Config) Options() ([]Option, error) {
	rng, err := cfg.Range()
	if err != nil {
		return nil, err
	}
	dir, err := kvstream.ParseDirection(cfg.Direction)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithRange(rng), WithDirection(dir)}
	if cfg.ReopenOnTimeout != nil {
		opts = append(opts, WithReopenOnTimeout(*cfg.ReopenOnTimeout))
	}
	if cfg.HighWaterMark != 0 {
		opts = append(opts, WithHighWaterMark(cfg.HighWaterMark))
	}
	return opts, nil
}
