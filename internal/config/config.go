// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/puff/internal/batch"
)

const (
	// DefaultName is the name of the built-in batch.
	DefaultName = "googly-puff"
	// DefaultRepeat is how many times the address list is repeated by default.
	DefaultRepeat = 3
)

var (
	// ErrInvalidYaml is returned when the document cannot be decoded.
	ErrInvalidYaml = errors.New("invalid YAML")
	// ErrNoAddresses is returned when a definition has no addresses.
	ErrNoAddresses = errors.New("no addresses specified")
	// ErrInvalidPolicy is returned for an unknown cancel policy.
	ErrInvalidPolicy = errors.New("invalid cancel policy")
	// ErrInvalidRange is returned when a numeric setting is out of range.
	ErrInvalidRange = errors.New("value out of range")
)

// defaultAddresses are the photos of the built-in batch. Two of them are the same image.
var defaultAddresses = []string{
	"https://imgur.com/ZUPQN58.png",
	"https://imgur.com/ZUPQN58.png",
	"https://imgur.com/96Hb18G.jpg",
}

// Cancel configures which jobs the coordinator tries to cancel.
type Cancel struct {
	Policy string `yaml:"policy" json:"policy"`
	From   int    `yaml:"from" json:"from"`
}

// Config is a batch definition.
type Config struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Addresses   []string `yaml:"addresses" json:"addresses"`
	Repeat      int      `yaml:"repeat" json:"repeat"`
	Cancel      Cancel   `yaml:"cancel" json:"cancel"`
	Parallelism int      `yaml:"parallelism" json:"parallelism"`
	Timeout     string   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Dest        string   `yaml:"dest,omitempty" json:"dest,omitempty"`
}

// Default returns the built-in batch: three addresses, repeated three times,
// with every job from index 3 onward randomly offered for cancellation.
func Default() *Config {
	return &Config{
		Name:      DefaultName,
		Addresses: slices.Clone(defaultAddresses),
		Repeat:    DefaultRepeat,
		Cancel: Cancel{
			Policy: batch.PolicyRandom,
			From:   batch.DefaultCancelFrom,
		},
	}
}

// Parse decodes and validates a YAML batch definition.
// Settings missing from the document keep the values of Default, except the
// name and addresses.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Name = ""
	cfg.Addresses = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYaml, err) //nolint:errorlint
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the definition can be run.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Addresses) == 0 {
		errs = append(errs, ErrNoAddresses)
	}

	for i, a := range c.Addresses {
		if strings.TrimSpace(a) == "" {
			errs = append(errs, fmt.Errorf("%w: address %d is empty", ErrNoAddresses, i))
		}
	}

	if _, err := batch.ParsePolicy(c.Cancel.Policy); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidPolicy, err))
	}

	if c.Repeat < 1 {
		errs = append(errs, fmt.Errorf("%w: repeat must be at least 1, got %d", ErrInvalidRange, c.Repeat))
	}

	if c.Cancel.From < 0 {
		errs = append(errs, fmt.Errorf("%w: cancel.from must not be negative, got %d", ErrInvalidRange, c.Cancel.From))
	}

	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("%w: parallelism must not be negative, got %d", ErrInvalidRange, c.Parallelism))
	}

	if _, err := c.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Expanded returns the address list repeated Repeat times, in order.
func (c *Config) Expanded() []string {
	n := max(c.Repeat, 1)
	out := make([]string, 0, len(c.Addresses)*n)

	for range n {
		out = append(out, c.Addresses...)
	}

	return out
}

// Policy returns the configured cancel policy.
func (c *Config) Policy() (batch.CancelPolicy, error) {
	p, err := batch.ParsePolicy(c.Cancel.Policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	return p, nil
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout %q: %w", ErrInvalidRange, c.Timeout, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("%w: timeout must not be negative, got %s", ErrInvalidRange, c.Timeout)
	}

	return d, nil
}

// Example is a commented batch definition.
const Example = `# puff batch definition
name: googly-puff
description: Download a few photos, three times over.

# Addresses use Hashicorp's go-getter syntax.
addresses:
  - https://imgur.com/ZUPQN58.png
  - https://imgur.com/ZUPQN58.png
  - https://imgur.com/96Hb18G.jpg

# The address list is repeated this many times.
repeat: 3

# Jobs from index 'from' onward are offered for cancellation.
# policy is one of none, random or all.
cancel:
  policy: random
  from: 3

# Maximum concurrent downloads, 0 means the number of CPUs.
parallelism: 0

# How long a synchronous download waits, empty means forever.
timeout: 30s

# Download directory, empty means a new temporary directory.
dest: ""
`
