// Package config provides Viper-based configuration loading for the arena runner.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// CombatConfig holds the tuning constants shared by every character.
type CombatConfig struct {
	// InvulnerabilityMs is the window after a hit during which further damage is ignored.
	InvulnerabilityMs int `mapstructure:"invulnerability_ms"`
	// CriticalDamage multiplies damage on a critical hit.
	CriticalDamage float64 `mapstructure:"critical_damage"`
	// MoveEpsilon is the minimum |vx| that counts as moving.
	MoveEpsilon float64 `mapstructure:"move_epsilon"`
	// RisingThreshold is the vy below which an airborne body is rising.
	RisingThreshold float64 `mapstructure:"rising_threshold"`
	// FallingThreshold is the vy above which an airborne body is falling.
	FallingThreshold float64 `mapstructure:"falling_threshold"`
	// BaseExpThreshold is the experience needed to leave level 1.
	BaseExpThreshold int `mapstructure:"base_exp_threshold"`
	// SkillPointsPerLevel is granted on each level-up.
	SkillPointsPerLevel int `mapstructure:"skill_points_per_level"`
	// AttributeGrowth is added to every base attribute on each level-up.
	AttributeGrowth int `mapstructure:"attribute_growth"`
}

// Invulnerability returns InvulnerabilityMs as a duration.
func (c CombatConfig) Invulnerability() time.Duration {
	return time.Duration(c.InvulnerabilityMs) * time.Millisecond
}

// ContentConfig names the directories content is loaded from.
type ContentConfig struct {
	AbilitiesDir  string `mapstructure:"abilities_dir"`
	AnimationsDir string `mapstructure:"animations_dir"`
	ClassesDir    string `mapstructure:"classes_dir"`
	ItemsDir      string `mapstructure:"items_dir"`
	// ScriptsDir holds Lua class strategies. Empty disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// FighterConfig places one character in the arena.
type FighterConfig struct {
	Name  string   `mapstructure:"name"`
	Class string   `mapstructure:"class"`
	Items []string `mapstructure:"items"`
	// X is the starting horizontal position.
	X float64 `mapstructure:"x"`
}

// DummyConfig places a training dummy in the arena.
type DummyConfig struct {
	Name string  `mapstructure:"name"`
	X    float64 `mapstructure:"x"`
	// Health is the dummy's starting health.
	Health int `mapstructure:"health"`
	// Defense is subtracted from every incoming hit.
	Defense int `mapstructure:"defense"`
	// Retaliate is a dice expression rolled against the nearest fighter once per second.
	Retaliate string `mapstructure:"retaliate"`
}

// ArenaConfig controls the headless simulation.
type ArenaConfig struct {
	// Tick is the fixed simulation step.
	Tick time.Duration `mapstructure:"tick"`
	// Duration is the simulated time an arena runs for.
	Duration time.Duration `mapstructure:"duration"`
	// Seed drives every random draw. Zero selects the crypto source.
	Seed uint64 `mapstructure:"seed"`
	// Rounds is the number of independent arenas run concurrently.
	Rounds int `mapstructure:"rounds"`
	// Persist saves a snapshot of every surviving fighter when a round ends.
	Persist bool `mapstructure:"persist"`
	// Realtime paces each tick against the wall clock and schedules cooldowns
	// and dummy retaliation on it instead of the virtual clock.
	Realtime bool            `mapstructure:"realtime"`
	Fighters []FighterConfig `mapstructure:"fighters"`
	Dummies  []DummyConfig   `mapstructure:"dummies"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Content  ContentConfig  `mapstructure:"content"`
	Arena    ArenaConfig    `mapstructure:"arena"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Arena.Persist {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateArena(c.Arena); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateDatabase checks only the database section. cmd/migrate uses it
// because it needs no content or arena settings.
func (c Config) ValidateDatabase() error {
	return validateDatabase(c.Database)
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.InvulnerabilityMs < 0 {
		errs = append(errs, fmt.Sprintf("combat.invulnerability_ms must be >= 0, got %d", c.InvulnerabilityMs))
	}
	if c.CriticalDamage < 1 {
		errs = append(errs, fmt.Sprintf("combat.critical_damage must be >= 1, got %g", c.CriticalDamage))
	}
	if c.MoveEpsilon < 0 {
		errs = append(errs, fmt.Sprintf("combat.move_epsilon must be >= 0, got %g", c.MoveEpsilon))
	}
	if c.RisingThreshold >= c.FallingThreshold {
		errs = append(errs, "combat.rising_threshold must be below combat.falling_threshold")
	}
	if c.BaseExpThreshold < 1 {
		errs = append(errs, fmt.Sprintf("combat.base_exp_threshold must be >= 1, got %d", c.BaseExpThreshold))
	}
	if c.SkillPointsPerLevel < 0 {
		errs = append(errs, fmt.Sprintf("combat.skill_points_per_level must be >= 0, got %d", c.SkillPointsPerLevel))
	}
	if c.AttributeGrowth < 0 {
		errs = append(errs, fmt.Sprintf("combat.attribute_growth must be >= 0, got %d", c.AttributeGrowth))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.AbilitiesDir == "" {
		errs = append(errs, "content.abilities_dir must not be empty")
	}
	if c.AnimationsDir == "" {
		errs = append(errs, "content.animations_dir must not be empty")
	}
	if c.ClassesDir == "" {
		errs = append(errs, "content.classes_dir must not be empty")
	}
	if c.ItemsDir == "" {
		errs = append(errs, "content.items_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateArena(a ArenaConfig) error {
	var errs []string
	if a.Tick <= 0 {
		errs = append(errs, "arena.tick must be positive")
	}
	if a.Duration < a.Tick {
		errs = append(errs, "arena.duration must be at least one tick")
	}
	if a.Rounds < 1 {
		errs = append(errs, fmt.Sprintf("arena.rounds must be >= 1, got %d", a.Rounds))
	}
	if len(a.Fighters) == 0 {
		errs = append(errs, "arena.fighters must not be empty")
	}
	seen := make(map[string]bool, len(a.Fighters))
	for i, f := range a.Fighters {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("arena.fighters[%d].name must not be empty", i))
		}
		if f.Class == "" {
			errs = append(errs, fmt.Sprintf("arena.fighters[%d].class must not be empty", i))
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("arena.fighters[%d].name %q is duplicated", i, f.Name))
		}
		seen[f.Name] = true
	}
	for i, d := range a.Dummies {
		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("arena.dummies[%d].name must not be empty", i))
		}
		if d.Health < 1 {
			errs = append(errs, fmt.Sprintf("arena.dummies[%d].health must be >= 1, got %d", i, d.Health))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v, err := read(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// LoadDatabase reads configuration like Load but validates only the database section.
func LoadDatabase(path string) (Config, error) {
	v, err := read(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func read(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with BRAWL_ prefix
	v.SetEnvPrefix("BRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return v, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs every default on v. Exposed for callers that build
// their own Viper instance.
func SetDefaults(v *viper.Viper) {
	setDefaults(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "brawl")
	v.SetDefault("database.password", "brawl")
	v.SetDefault("database.name", "brawl")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("combat.invulnerability_ms", 800)
	v.SetDefault("combat.critical_damage", 1.5)
	v.SetDefault("combat.move_epsilon", 1.0)
	v.SetDefault("combat.rising_threshold", -10.0)
	v.SetDefault("combat.falling_threshold", 10.0)
	v.SetDefault("combat.base_exp_threshold", 100)
	v.SetDefault("combat.skill_points_per_level", 1)
	v.SetDefault("combat.attribute_growth", 1)

	v.SetDefault("content.abilities_dir", "content/abilities")
	v.SetDefault("content.animations_dir", "content/animations")
	v.SetDefault("content.classes_dir", "content/classes")
	v.SetDefault("content.items_dir", "content/items")
	v.SetDefault("content.scripts_dir", "scripts/classes")

	v.SetDefault("arena.tick", "16ms")
	v.SetDefault("arena.duration", "30s")
	v.SetDefault("arena.seed", 0)
	v.SetDefault("arena.rounds", 1)
	v.SetDefault("arena.persist", false)
	v.SetDefault("arena.realtime", false)
}
