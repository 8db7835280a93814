// Package config holds the pruning engine's options: strategy thresholds,
// protected tools and paths, and persistence location. Options are plain
// values with defaults; an optional YAML file overlays them.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from Go duration strings
// ("10s", "2m") in YAML.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Options configures the pruning engine.
type Options struct {
	// DataDir is where per-session state files are written.
	DataDir string `yaml:"data_dir"`

	// ProtectedTools are tool names that no strategy or manual operation
	// may ever prune.
	ProtectedTools []string `yaml:"protected_tools"`

	// ProtectedPaths are doublestar glob patterns; file operations on
	// matching paths are exempt from write/read supersede and manual
	// discard.
	ProtectedPaths []string `yaml:"protected_paths"`

	// PurgeProtectedTools are additionally exempt from the error-purge
	// strategy only.
	PurgeProtectedTools []string `yaml:"purge_protected_tools"`

	// ErrorTurnThreshold is the age in turns after which an errored tool
	// call is purged.
	ErrorTurnThreshold int `yaml:"error_turn_threshold"`

	// TruncateTokenThreshold is the estimated token count above which a
	// tool output body is truncated in place.
	TruncateTokenThreshold int64 `yaml:"truncate_token_threshold"`

	// TruncateHeadRunes and TruncateTailRunes shape the retained head and
	// tail of a truncated output.
	TruncateHeadRunes int `yaml:"truncate_head_runes"`
	TruncateTailRunes int `yaml:"truncate_tail_runes"`

	// ReasoningTurnThreshold and ReasoningTokenThreshold gate reasoning
	// compression: blocks older and larger than both are compressed.
	ReasoningTurnThreshold  int   `yaml:"reasoning_turn_threshold"`
	ReasoningTokenThreshold int64 `yaml:"reasoning_token_threshold"`

	// ReasoningKeyLines is the maximum number of extracted key lines kept
	// by reasoning compression.
	ReasoningKeyLines int `yaml:"reasoning_key_lines"`

	// ReasoningPlaceholder, when non-empty, converts a manual discard of a
	// reasoning block into a distill with this text. Hosts whose API
	// requires a non-empty reasoning field set this.
	ReasoningPlaceholder string `yaml:"reasoning_placeholder"`

	// HistoryLimit bounds the discard-history append log.
	HistoryLimit int `yaml:"history_limit"`

	// FetchTimeout bounds the host message-list fetch.
	FetchTimeout Duration `yaml:"fetch_timeout"`
}

// DefaultOptions returns Options with default values applied.
func DefaultOptions() Options {
	return Options{
		ProtectedTools:          []string{"task", "agent"},
		ProtectedPaths:          []string{"**/.env*", "**/*.pem", "**/*.key"},
		PurgeProtectedTools:     []string{"bash"},
		ErrorTurnThreshold:      3,
		TruncateTokenThreshold:  2000,
		TruncateHeadRunes:       2000,
		TruncateTailRunes:       500,
		ReasoningTurnThreshold:  2,
		ReasoningTokenThreshold: 250,
		ReasoningKeyLines:       5,
		HistoryLimit:            50,
		FetchTimeout:            Duration(10 * time.Second),
	}
}

// Load reads a YAML options file and overlays it on the defaults. A
// missing file is not an error; the defaults are returned.
func Load(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("reading options file: %w", err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return DefaultOptions(), fmt.Errorf("parsing options file: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return DefaultOptions(), err
	}
	return opts, nil
}

// Validate checks that every protected-path pattern is a valid glob.
func (o Options) Validate() error {
	for _, pat := range o.ProtectedPaths {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid protected path pattern %q", pat)
		}
	}
	return nil
}

// IsProtectedTool reports whether a tool name is globally protected.
func (o Options) IsProtectedTool(name string) bool {
	for _, t := range o.ProtectedTools {
		if t == name {
			return true
		}
	}
	return false
}

// IsPurgeProtectedTool reports whether a tool is exempt from error purge.
func (o Options) IsPurgeProtectedTool(name string) bool {
	if o.IsProtectedTool(name) {
		return true
	}
	for _, t := range o.PurgeProtectedTools {
		if t == name {
			return true
		}
	}
	return false
}

// IsProtectedPath reports whether a file path matches a protected pattern.
func (o Options) IsProtectedPath(path string) bool {
	for _, pat := range o.ProtectedPaths {
		if ok, err := doublestar.Match(pat, path); err == nil && ok {
			return true
		}
	}
	return false
}
