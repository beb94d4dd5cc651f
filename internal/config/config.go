// Package config loads trainsched settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/abhisek/trainsched/internal/antigrind"
	"github.com/abhisek/trainsched/internal/apperr"
	"github.com/abhisek/trainsched/internal/priority"
	"github.com/abhisek/trainsched/internal/session"
)

// Config holds every tunable the CLI and trainer service read.
type Config struct {
	// DBPath overrides the default database location when set.
	DBPath string

	// GatesFile points at a JSON array of gate requirements.
	GatesFile string

	DailyTargetMinutes int     `validate:"gte=0,lte=720"`
	LearnerLevel       int     `validate:"gte=1,lte=10"`
	TargetWinRate      float64 `validate:"gt=0,lt=1"`

	// SnapshotKeep is how many snapshots survive a prune.
	SnapshotKeep int `validate:"gte=1"`

	AntiGrind antigrind.Config
	Planner   session.Config
	Weights   priority.Weights
	Log       LogConfig
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DailyTargetMinutes: 60,
		LearnerLevel:       5,
		TargetWinRate:      0.7,
		SnapshotKeep:       5,
		AntiGrind:          antigrind.DefaultConfig(),
		Planner:            session.DefaultConfig(),
		Weights:            priority.DefaultWeights(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads optional dotenv files (".env" when none are named) and then
// builds the Config from the environment. Missing dotenv files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from TRAINSCHED_* variables, falling back to
// defaults for unset values.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if p := os.Getenv("TRAINSCHED_DB"); p != "" {
		cfg.DBPath = p
	}
	if p := os.Getenv("TRAINSCHED_GATES_FILE"); p != "" {
		cfg.GatesFile = p
	}
	if l := os.Getenv("TRAINSCHED_LOG_LEVEL"); l != "" {
		cfg.Log.Level = l
	}
	if f := os.Getenv("TRAINSCHED_LOG_FORMAT"); f != "" {
		cfg.Log.Format = f
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"TRAINSCHED_DAILY_MINUTES", &cfg.DailyTargetMinutes},
		{"TRAINSCHED_LEVEL", &cfg.LearnerLevel},
		{"TRAINSCHED_SNAPSHOT_KEEP", &cfg.SnapshotKeep},
		{"TRAINSCHED_MAX_SAME_ATOM", &cfg.AntiGrind.MaxSameAtomPerSession},
		{"TRAINSCHED_COOLDOWN_MINUTES", &cfg.AntiGrind.CooldownMinutes},
		{"TRAINSCHED_MINUTES_PER_ATOM", &cfg.Planner.MinutesPerAtom},
	}
	for _, v := range ints {
		s := os.Getenv(v.env)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, apperr.Invalid(v.env, "not an integer: %q", s)
		}
		*v.dst = n
	}

	if s := os.Getenv("TRAINSCHED_TARGET_WIN_RATE"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Config{}, apperr.Invalid("TRAINSCHED_TARGET_WIN_RATE", "not a number: %q", s)
		}
		cfg.TargetWinRate = f
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks every field's bounds, including the nested limits.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Invalid(fe.Namespace(), "failed %q (value %v)", fe.Tag(), fe.Value())
	}
	return fmt.Errorf("validate config: %w", err)
}
