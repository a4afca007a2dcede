package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"valve/internal/config"
	"valve/internal/session"
	"valve/pkg/units"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg     *config.Config
	cfgFile string
)

// RootFlags holds the command line flags for the root command.
type RootFlags struct {
	Limit  string
	Size   int64
	Paused bool
	NoUI   bool
	Quiet  bool
}

var rootFlags RootFlags

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "valve",
	Short: "valve - an adjustable throughput valve for pipes",
	Long: `valve copies standard input to standard output while enforcing a
configurable throughput ceiling. While the copy runs, an interactive
control surface on the terminal lets you pause and resume the transfer,
nudge the rate up or down, cycle the rate unit, or type a new rate.

Usage:
  valve -L 2MiB < big.iso > /dev/sdX
  tar cz /data | valve -L 512KiB | ssh host 'cat > backup.tgz'

Without -L the copy runs unthrottled; the limit can still be set live
from the control surface.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize viper configuration
		initConfig()

		var err error
		cfg, err = buildConfig(&rootFlags)
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		outcome := session.New(cfg, os.Stdin, os.Stdout).Run(createContext())
		os.Exit(outcome.ExitCode())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.valve.yaml)")
	rootCmd.Flags().StringVarP(&rootFlags.Limit, "limit", "L", "", "throughput ceiling, e.g. 2MiB or 512K (default unlimited)")
	rootCmd.Flags().Int64VarP(&rootFlags.Size, "size", "s", 0, "total size hint in bytes for progress and ETA")
	rootCmd.Flags().BoolVar(&rootFlags.Paused, "paused", false, "start the transfer paused")
	rootCmd.Flags().BoolVar(&rootFlags.NoUI, "no-ui", false, "disable the interactive surface, keep the progress bar")
	rootCmd.Flags().BoolVarP(&rootFlags.Quiet, "quiet", "q", false, "no progress output at all")

	// Set up viper environment variable support
	viper.SetEnvPrefix("VALVE")
	viper.AutomaticEnv()

	viper.BindPFlag("limit", rootCmd.Flags().Lookup("limit"))
	viper.BindPFlag("quiet", rootCmd.Flags().Lookup("quiet"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("Warning: Could not find home directory: %v", err)
			return
		}

		// Search config in home directory with name ".valve" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".valve")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// buildConfig assembles the initial configuration from defaults, the config
// file and environment, and the command line flags.
func buildConfig(flags *RootFlags) (*config.Config, error) {
	c := config.NewDefaultConfig()

	// Tuning knobs only reachable through the config file or environment.
	if v := viper.GetInt("chunk_size"); v > 0 {
		c.Transfer.ChunkSize = v
	}
	if v := viper.GetDuration("window"); v > 0 {
		c.Transfer.Window = v
	}
	if v := viper.GetDuration("render_tick"); v > 0 {
		c.UI.RenderTick = v
	}

	if limit := viper.GetString("limit"); limit != "" {
		magnitude, unit, unlimited, err := units.ParseRate(limit)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate limit: %w", err)
		}
		if !unlimited {
			c.Rate = config.RateConfig{Magnitude: magnitude, Unit: unit}
		}
	}

	c.Transfer.StartPaused = flags.Paused
	c.UI.NoUI = flags.NoUI
	c.UI.Quiet = viper.GetBool("quiet")

	c.Transfer.TotalSize = flags.Size
	if c.Transfer.TotalSize == 0 {
		c.Transfer.TotalSize = stdinSize()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// stdinSize returns the input size when stdin is a regular file, so
// `valve < file` gets progress and ETA for free. Pipes report 0 (unknown).
func stdinSize() int64 {
	stat, err := os.Stdin.Stat()
	if err != nil || !stat.Mode().IsRegular() {
		return 0
	}
	return stat.Size()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// createContext creates a context that cancels on interrupt signals
func createContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Printf("Received interrupt signal, shutting down...")
		cancel()
	}()

	return ctx
}
