package cacheinfra

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc-backed store.
type Config struct {
	// Capacity bounds each region TTL's client, not the store as a whole.
	Capacity  int
	NumShards int
	// TTL applies to Set calls with a non-positive TTL.
	TTL time.Duration
	// EvictionPercentage is the share of a full client dropped at once (1-100).
	EvictionPercentage int
	// EvictionInterval sets how often expired entries are swept. Zero keeps
	// the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig sizes the store for the admin read paths: 10k entries per TTL
// client, which holds every list page of a mid-sized clinic.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions returns the options sturdyc.New takes beyond its
// positional sizing arguments.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

const percentRange = "must be between 1 and 100"

// fieldOrder fixes which field a multi-field failure reports.
var fieldOrder = []string{"Capacity", "NumShards", "TTL", "EvictionPercentage", "EvictionInterval"}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required.Error("must be greater than 0"), validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required.Error("must be greater than 0"), validation.Min(1)),
		validation.Field(&c.TTL, validation.Required.Error("must be greater than 0"), validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage,
			validation.Required.Error(percentRange), validation.Min(1).Error(percentRange), validation.Max(100).Error(percentRange)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0)).Error("must be non-negative")),
	)
	var fields validation.Errors
	if !errors.As(err, &fields) {
		return err
	}
	for _, name := range fieldOrder {
		if fe, ok := fields[name]; ok {
			return &ConfigError{Field: name, Message: fe.Error()}
		}
	}
	return err
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
