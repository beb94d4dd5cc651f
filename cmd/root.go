package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/config"
	"github.com/abhisek/trainsched/internal/logging"
	"github.com/abhisek/trainsched/internal/store"
	"github.com/abhisek/trainsched/internal/trainer"
)

var rootCmd = &cobra.Command{
	Use:   "trainsched",
	Short: "Adaptive practice scheduler",
	Long: "trainsched tracks ratings, mastery and review schedules for one learner " +
		"and plans each day's practice session.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TRAINSCHED_DB env var)")
	rootCmd.PersistentFlags().String("env", ".env", "Dotenv file with TRAINSCHED_* settings")
	rootCmd.PersistentFlags().String("gates", "", "JSON file of gate requirements (overrides TRAINSCHED_GATES_FILE)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(abandonCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(gatesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// loadConfig reads the dotenv file named by --env and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if g, _ := cmd.Flags().GetString("gates"); g != "" {
		cfg.GatesFile = g
	}
	return cfg, nil
}

// openService loads configuration, opens the store and builds the trainer.
// The returned close func releases the store.
func openService(cmd *cobra.Command) (*trainer.Service, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	gates, err := trainer.LoadGates(cfg.GatesFile)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("load gates: %w", err)
	}

	ctx := logging.WithContext(cmd.Context(), log)
	cmd.SetContext(ctx)
	svc, err := trainer.New(ctx, st, cfg, gates, log)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return svc, func() { st.Close() }, nil
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }
