// Package config loads server settings and rule presets from the
// environment.
package config

import (
	"fmt"
	"sort"

	"github.com/caarlos0/env/v11"

	"github.com/kouya0205/math-mahjong/game/engine"
)

// Server holds process-level settings, parsed from the environment.
// Command-line flags in main override these.
type Server struct {
	Host         string `env:"MM_HOST" envDefault:"localhost"`
	Port         int    `env:"MM_PORT" envDefault:"8080"`
	SnapshotPath string `env:"MM_SNAPSHOT_PATH" envDefault:"data/snapshots.db"`
	RulesPreset  string `env:"MM_RULES" envDefault:"standard"`
	Debug        bool   `env:"MM_DEBUG"`
}

// ruleOverrides are optional per-field tweaks layered on top of a preset.
type ruleOverrides struct {
	HandSize            *int  `env:"MM_HAND_SIZE"`
	MinPlayers          *int  `env:"MM_MIN_PLAYERS"`
	MaxPlayers          *int  `env:"MM_MAX_PLAYERS"`
	TargetDigits        *int  `env:"MM_TARGET_DIGITS"`
	TargetDrawBudget    *int  `env:"MM_TARGET_DRAW_BUDGET"`
	DiscardTail         *int  `env:"MM_DISCARD_TAIL"`
	RevealOpponentHands *bool `env:"MM_REVEAL_HANDS"`
}

// presets are the named rule sets a room can be created with.
var presets = map[string]engine.Rules{
	"standard": engine.DefaultRules(),
	"quick": {
		HandSize:         5,
		MinPlayers:       2,
		MaxPlayers:       4,
		TargetDigits:     2,
		TargetDrawBudget: 8,
		DiscardTail:      5,
	},
	"open": {
		HandSize:            7,
		MinPlayers:          2,
		MaxPlayers:          4,
		TargetDigits:        3,
		TargetDrawBudget:    10,
		DiscardTail:         5,
		RevealOpponentHands: true,
	},
}

// LoadServer parses server settings from the environment.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse server env: %w", err)
	}
	return &cfg, nil
}

// LoadRules resolves a named preset and applies environment overrides.
func LoadRules(preset string) (engine.Rules, error) {
	rules, ok := presets[preset]
	if !ok {
		return engine.Rules{}, fmt.Errorf("unknown rules preset %q (have %v)", preset, Presets())
	}

	var overrides ruleOverrides
	if err := env.Parse(&overrides); err != nil {
		return engine.Rules{}, fmt.Errorf("parse rules env: %w", err)
	}
	if overrides.HandSize != nil {
		rules.HandSize = *overrides.HandSize
	}
	if overrides.MinPlayers != nil {
		rules.MinPlayers = *overrides.MinPlayers
	}
	if overrides.MaxPlayers != nil {
		rules.MaxPlayers = *overrides.MaxPlayers
	}
	if overrides.TargetDigits != nil {
		rules.TargetDigits = *overrides.TargetDigits
	}
	if overrides.TargetDrawBudget != nil {
		rules.TargetDrawBudget = *overrides.TargetDrawBudget
	}
	if overrides.DiscardTail != nil {
		rules.DiscardTail = *overrides.DiscardTail
	}
	if overrides.RevealOpponentHands != nil {
		rules.RevealOpponentHands = *overrides.RevealOpponentHands
	}
	return rules, nil
}

// Presets lists the available preset names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
