package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SPIKESPY_"

// loadDotEnv imports a .env file from the working directory; variables already set take precedence.
func loadDotEnv() {
	_ = godotenv.Load()
}

func lookupEnv(key string) string {
	return os.Getenv(envPrefix + key)
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := lookupEnv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := lookupEnv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	float := func(key string, dst *float64) bool {
		if v := lookupEnv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return false
			}
			*dst = f
			return true
		}
		return false
	}
	boolean := func(key string, dst *bool) bool {
		if v := lookupEnv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return false
			}
			*dst = b
			return true
		}
		return false
	}

	dur("POLL_INTERVAL", &cfg.PollInterval)
	float("SPIKE_THRESHOLD", &cfg.SpikeThreshold)
	dur("UPDATE_INTERVAL", &cfg.UpdateInterval)
	boolean("NO_UPDATE", &cfg.NoUpdate)
	boolean("SUPPRESS_UPDATE", &cfg.SuppressUpdate)
	float("NOISE_FLOOR", &cfg.NoiseFloor)
	str("PROVIDER", &cfg.Provider)
	str("BPF_OBJECT", &cfg.BPFObject)
	str("PROC_ROOT", &cfg.ProcRoot)
	boolean("HIDE_KERNEL", &cfg.HideKernel)
	str("NAME_FILTER", &cfg.NameFilter)
	boolean("NO_COLOR", &cfg.NoColor)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	// The policy is chosen as a whole: any of these replaces the file's selection.
	var policy policyFlags
	var all bool
	if boolean("ALL", &all) {
		policy.seen, policy.all = true, all
	}
	var over float64
	if float("OVER", &over) {
		policy.seen, policy.over = true, &over
	}
	if v := lookupEnv("TOP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTOP: %w", envPrefix, err))
		} else {
			policy.seen, policy.top = true, &n
		}
	}
	policy.apply(cfg)

	return errors.Join(errs...)
}

// applyPositional handles [poll_interval_ms] [spike_threshold] [update_interval_ms].
func applyPositional(cfg *Config, args []string) error {
	if len(args) > 3 {
		return fmt.Errorf("unexpected arguments %q: at most poll_interval_ms, spike_threshold and update_interval_ms", args[3:])
	}
	if len(args) > 0 {
		ms, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("poll_interval_ms: %w", err)
		}
		cfg.PollInterval = time.Duration(ms) * time.Millisecond
	}
	if len(args) > 1 {
		threshold, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("spike_threshold: %w", err)
		}
		cfg.SpikeThreshold = threshold
	}
	if len(args) > 2 {
		ms, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("update_interval_ms: %w", err)
		}
		cfg.UpdateInterval = time.Duration(ms) * time.Millisecond
	}
	return nil
}
