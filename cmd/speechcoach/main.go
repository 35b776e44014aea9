package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/leonardotrapani/speechcoach/internal/bus"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/daemon"
	"github.com/leonardotrapani/speechcoach/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags override the config file for a single invocation.
type globalFlags struct {
	configPath string
	backendURL string
	language   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "speechcoach",
		Short:         "Speech transcription and pronunciation coaching from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/speechcoach/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.backendURL, "backend", "", "backend URL, overriding the config file")
	rootCmd.PersistentFlags().StringVarP(&flags.language, "language", "l", "", "practice language code, overriding the config file")

	rootCmd.AddCommand(
		serveCmd(flags),
		toggleCmd(),
		referenceCmd(),
		cancelCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(flags),
		transcribeCmd(flags),
		analyzeCmd(flags),
		recordCmd(flags),
		speakCmd(flags),
		chatCmd(flags),
		healthCmd(flags),
		languagesCmd(flags),
		doctorCmd(flags),
	)
	return rootCmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recording daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := flags.manager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := mgr.GetConfig()
			flags.apply(cfg)

			a, err := newApp(cfg, cmd.OutOrStdout(), cfg.ToPipeWire())
			if err != nil {
				return err
			}
			return daemon.New(a.coach, a.cache, mgr).Run()
		},
	}
}

func sendCommand(cmd *cobra.Command, c byte, arg, what string) error {
	resp, err := bus.SendCommand(c, arg)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), resp)
	return nil
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Start recording, or stop and submit the current recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, bus.CmdToggle, "", "toggle recording")
		},
	}
}

func referenceCmd() *cobra.Command {
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "reference [text]",
		Short: "Set the reference text the next recording is scored against",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := joinArgs(args)
			if !clearAll && text == "" {
				return fmt.Errorf("reference text required (use --clear to remove it)")
			}
			if clearAll {
				text = ""
			}
			return sendCommand(cmd, bus.CmdReference, text, "set reference")
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "clear the reference so recordings are transcribed")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current recording and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, bus.CmdStatus, "", "get status")
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, bus.CmdVersion, "", "get version")
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, bus.CmdQuit, "", "stop daemon")
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the current recording and stop tracking jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(cmd, bus.CmdCancel, "", "cancel operation")
		},
	}
}

func configureCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration for speechcoach.
This will guide you through setting up:
- The backend URL and request timeout
- Practice language, theme and playback volume
- OpenAI fallbacks for speech synthesis and the grammar chatbot
- Notification preferences and advanced recording settings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(flags)
		},
	}
}

func runConfigure(flags *globalFlags) error {
	path, err := flags.path()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := result.Config.SaveFile(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps(path)
	return nil
}

func showNextSteps(configPath string) {
	serviceRunning := false
	if _, err := exec.Command("systemctl", "--user", "is-active", "--quiet", "speechcoach.service").CombinedOutput(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	if !serviceRunning {
		fmt.Println("1. Start the daemon: speechcoach serve (or systemctl --user start speechcoach.service)")
	} else {
		fmt.Println("1. The running daemon picks up the new settings automatically")
	}
	fmt.Println("2. Check the backend: speechcoach health")
	fmt.Println("3. Practice: speechcoach reference \"the quick brown fox\" && speechcoach toggle")
	fmt.Println()
	fmt.Printf("Config file location: %s\n", configPath)
}
