package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/slideforge/internal/config"
	"github.com/kikiluvv/slideforge/internal/health"
	"github.com/kikiluvv/slideforge/internal/logging"
	"github.com/kikiluvv/slideforge/internal/notify"
	"github.com/kikiluvv/slideforge/internal/pipeline"
	"github.com/kikiluvv/slideforge/internal/settings"
)

const fallbackCronSchedule = "0 1 * * 5"

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "slideforge",
	Short: "slideforge - scheduled slideshow video composer",
	Long:  "Composes fixed-duration slideshow videos from an image folder, with music, attribution overlays and an optional appended outro.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		// Optional .env next to the binary; absence is not an error
		if err := godotenv.Load(); err == nil {
			log.Debug().Msg("loaded environment from .env")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the configuration twice: once without overrides to
// locate the settings store, then again with the store's contents layered
// on top.
func loadConfig() (*config.Config, *settings.Store, error) {
	base, err := config.Load(cfgFile, nil)
	if err != nil {
		return nil, nil, err
	}

	store, err := settings.Open(base.SettingsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open settings store: %w", err)
	}

	cfg, err := config.Load(cfgFile, store.Snapshot())
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func buildEngine(cfg *config.Config) (*pipeline.Engine, *health.Tracker, error) {
	heartbeat := ""
	if cfg.Schedule.EnableHeartbeat {
		heartbeat = cfg.Schedule.HeartbeatFile
	}
	tracker := health.NewTracker(log.Logger, heartbeat)

	var sink notify.Sink = notify.Nop{}
	if cfg.Ntfy.Enabled && cfg.Ntfy.Topic != "" {
		url := cfg.Ntfy.URL
		if url == "" {
			url = "https://ntfy.sh"
		}
		sink = notify.NewNtfySink(log.Logger, url, cfg.Ntfy.Topic, cfg.Ntfy.Token)
	}

	engine, err := pipeline.New(log.Logger, cfg, tracker, sink)
	if err != nil {
		return nil, nil, err
	}
	return engine, tracker, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compose one video now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		engine, _, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		return engine.Run(cmd.Context())
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		engine, tracker, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		schedule := cfg.Schedule.CronSchedule
		if _, err := cron.ParseStandard(schedule); err != nil {
			log.Warn().Err(err).
				Str("schedule", schedule).
				Str("fallback", fallbackCronSchedule).
				Msg("invalid cron schedule, using fallback")
			schedule = fallbackCronSchedule
		}

		ctx := cmd.Context()
		c := cron.New()

		if _, err := c.AddFunc(schedule, func() {
			if err := engine.Run(ctx); err != nil {
				if errors.Is(err, pipeline.ErrRunInProgress) {
					log.Warn().Msg("skipping trigger, previous run still in progress")
					return
				}
				log.Error().Err(err).Msg("scheduled run failed")
			}
		}); err != nil {
			return fmt.Errorf("install schedule: %w", err)
		}

		if cfg.Schedule.EnableHeartbeat {
			if _, err := c.AddFunc("* * * * *", func() {
				if err := tracker.Heartbeat(); err != nil {
					log.Warn().Err(err).Msg("heartbeat write failed")
				}
				log.Debug().Str("status", tracker.Status().Summary()).Msg("heartbeat")
			}); err != nil {
				return fmt.Errorf("install heartbeat: %w", err)
			}
		}

		log.Info().Str("schedule", schedule).Msg("daemon started")
		c.Start()
		<-ctx.Done()

		log.Info().Msg("shutting down")
		<-c.Stop().Done()
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		cmd.Print(string(data))
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Runtime settings override commands",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadConfig()
		if err != nil {
			return err
		}
		for _, kv := range store.ListAll() {
			cmd.Printf("%s=%s\n", kv[0], kv[1])
		}
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one stored override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadConfig()
		if err != nil {
			return err
		}
		value, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("no override stored for %s", args[0])
		}
		cmd.Println(value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store an override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !slices.Contains(config.OverridableKeys(), key) {
			return fmt.Errorf("%s is not a configurable setting", key)
		}

		_, store, err := loadConfig()
		if err != nil {
			return err
		}

		// Validate by resolving a trial config so bad values never reach
		// the store
		if _, err := config.Load(cfgFile, map[string]string{key: value}); err != nil {
			return err
		}

		if err := store.Set(key, value); err != nil {
			return err
		}
		log.Info().Str("key", key).Str("value", value).Msg("override stored")
		return nil
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove one stored override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadConfig()
		if err != nil {
			return err
		}
		removed, err := store.Delete(args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no override stored for %s", args[0])
		}
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all stored overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadConfig()
		if err != nil {
			return err
		}
		n, err := store.ResetAll()
		if err != nil {
			return err
		}
		log.Info().Int("removed", n).Msg("overrides cleared")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
}
