package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/transition"
)

// defaultServeAddr is the listen address used when neither the config file
// nor the --addr flag sets one.
const defaultServeAddr = ":8080"

// Config holds user preferences loaded from the config file. Command-line
// flags override it, and it overrides the built-in defaults.
//
// Example ~/.config/graphs/config.toml:
//
//	[animation]
//	duration_ms = 450
//	easing = "out-cubic"
//	stagger_ms = 40
//
//	[play]
//	fps = 30
//
//	[serve]
//	addr = ":9090"
type Config struct {
	Animation AnimationConfig `toml:"animation"`
	Play      PlayConfig      `toml:"play"`
	Serve     ServeConfig     `toml:"serve"`
}

// AnimationConfig sets the default transition options for animate and play.
type AnimationConfig struct {
	DurationMS int    `toml:"duration_ms"`
	Easing     string `toml:"easing"`
	StaggerMS  int    `toml:"stagger_ms"`
}

// PlayConfig sets terminal player preferences.
type PlayConfig struct {
	FPS int `toml:"fps"`
}

// ServeConfig sets HTTP server preferences.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// defaultConfig returns the built-in defaults, mirroring the transition
// package so the config file and flags agree on what "unset" means.
func defaultConfig() Config {
	return Config{
		Animation: AnimationConfig{
			DurationMS: int(transition.DefaultDuration / time.Millisecond),
			Easing:     transition.DefaultEasing.String(),
		},
		Play:  PlayConfig{FPS: transition.DefaultFPS},
		Serve: ServeConfig{Addr: defaultServeAddr},
	}
}

// configPath returns the config file location using the XDG standard
// (~/.config/graphs/config.toml).
func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName, "config.toml"), nil
}

// loadConfig reads the config file if present. A missing file is not an
// error; the built-in defaults are returned. Unknown keys are ignored so
// configs survive version skew in both directions.
func loadConfig() (Config, error) {
	cfg := defaultConfig()
	path, err := configPath()
	if err != nil {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// transitionOptions converts the animation section into transition options.
func (cfg Config) transitionOptions() (transition.Options, error) {
	easing, err := transition.ParseEasing(cfg.Animation.Easing)
	if err != nil {
		return transition.Options{}, apperrors.Wrap(apperrors.ErrCodeInvalidEasing, err, "config easing %q", cfg.Animation.Easing)
	}
	return transition.Options{
		Duration: time.Duration(cfg.Animation.DurationMS) * time.Millisecond,
		Easing:   easing,
		Stagger:  time.Duration(cfg.Animation.StaggerMS) * time.Millisecond,
	}, nil
}

// resolveTransition merges config defaults with explicitly set flags.
// changed reports whether the named flag was given on the command line;
// flags that were not are filled from the config file.
func resolveTransition(cfg Config, duration time.Duration, easing string, stagger time.Duration, changed func(string) bool) (transition.Options, error) {
	opts, err := cfg.transitionOptions()
	if err != nil {
		return transition.Options{}, err
	}
	if changed("duration") {
		opts.Duration = duration
	}
	if changed("stagger") {
		opts.Stagger = stagger
	}
	if changed("easing") {
		e, err := transition.ParseEasing(easing)
		if err != nil {
			return transition.Options{}, apperrors.Wrap(apperrors.ErrCodeInvalidEasing, err, "easing %q", easing)
		}
		opts.Easing = e
	}
	return opts, nil
}
