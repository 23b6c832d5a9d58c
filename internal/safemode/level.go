// Package safemode observes aggregate operational signals and degrades the
// system's operating configuration when they indicate the live pipeline may
// be unreliable.
package safemode

// Level represents the safe-mode operating level
type Level int

const (
	// LevelNormal means full operation
	LevelNormal Level = iota
	// LevelConservative means reduced staking
	LevelConservative
	// LevelDefensive means heavily reduced staking, core policy only
	LevelDefensive
	// LevelShutdown means staking halted
	LevelShutdown
)

// String returns string representation of the level
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelConservative:
		return "CONSERVATIVE"
	case LevelDefensive:
		return "DEFENSIVE"
	case LevelShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name back to its value. Unknown names map to
// NORMAL.
func ParseLevel(s string) Level {
	switch s {
	case "CONSERVATIVE":
		return LevelConservative
	case "DEFENSIVE":
		return LevelDefensive
	case "SHUTDOWN":
		return LevelShutdown
	default:
		return LevelNormal
	}
}

// Config is the operating configuration a safe-mode level imposes.
// Transitions are one-shot overwrites of the whole value.
type Config struct {
	Level                      Level   `json:"level"`
	MarketFeaturesEnabled      bool    `json:"market_features_enabled"`
	AlternateStrategiesEnabled bool    `json:"alternate_strategies_enabled"`
	StakeMultiplier            float64 `json:"stake_multiplier"`
	RestrictToCorePolicy       bool    `json:"restrict_to_core_policy"`
	SimulationOnly             bool    `json:"simulation_only"`
}

// LevelConfig maps a level to its fixed configuration. Each level has
// exactly one configuration regardless of which trigger fired.
func LevelConfig(level Level) Config {
	switch level {
	case LevelConservative:
		return Config{
			Level:                      LevelConservative,
			MarketFeaturesEnabled:      true,
			AlternateStrategiesEnabled: false,
			StakeMultiplier:            0.5,
			RestrictToCorePolicy:       false,
			SimulationOnly:             false,
		}
	case LevelDefensive:
		return Config{
			Level:                      LevelDefensive,
			MarketFeaturesEnabled:      false,
			AlternateStrategiesEnabled: false,
			StakeMultiplier:            0.25,
			RestrictToCorePolicy:       true,
			SimulationOnly:             false,
		}
	case LevelShutdown:
		return Config{
			Level:                      LevelShutdown,
			MarketFeaturesEnabled:      false,
			AlternateStrategiesEnabled: false,
			StakeMultiplier:            0,
			RestrictToCorePolicy:       true,
			SimulationOnly:             true,
		}
	default:
		return Config{
			Level:                      LevelNormal,
			MarketFeaturesEnabled:      true,
			AlternateStrategiesEnabled: true,
			StakeMultiplier:            1.0,
			RestrictToCorePolicy:       false,
			SimulationOnly:             false,
		}
	}
}

// LevelForSeverity maps a severity in [0,1] to a level.
func LevelForSeverity(severity float64) Level {
	switch {
	case severity >= 0.8:
		return LevelShutdown
	case severity >= 0.6:
		return LevelDefensive
	case severity >= 0.4:
		return LevelConservative
	default:
		return LevelNormal
	}
}
