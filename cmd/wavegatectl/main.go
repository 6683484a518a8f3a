package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wavegate/wavegate/pkg/logging"
	"github.com/wavegate/wavegate/pkg/portal"
	"github.com/wavegate/wavegate/pkg/sandbox"
)

var (
	version = "dev" // Will be set during build
	cfgFile string
)

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

var rootCmd = &cobra.Command{
	Use:           "wavegatectl",
	Short:         "Wavegate access-control diagnostics",
	SilenceUsage:  false,
	SilenceErrors: true,
	Long: `Wavegate access-control diagnostics (wavegatectl)

Inspection tools for the access-control core: classify a process the way the
core would, run a real consent dialog against the desktop portal, or replay
a scripted set of access checks against an in-memory host.

Configuration file (optional) must be in JSON format:
{
    "decision_log_path": "/var/log/wavegate/decisions.log",
    "app_log_path": "/var/log/wavegate/app.log",
    "log_level": "info",
    "policy_file": "/etc/wavegate/policies.yaml",
    "portal_timeout": 0,
    "status_dir": "/run/wavegate"
}`,
}

// loadConfig reads the optional config file and initializes logging from it.
func loadConfig() (*Config, error) {
	var config Config
	config.LogLevel = "info"

	if cfgFile != "" {
		path := cfgFile
		if !filepath.IsAbs(path) {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("failed to get absolute path: %v", err)
			}
			path = abs
		}
		if err := LoadConfig(path, &config); err != nil {
			return nil, fmt.Errorf("failed to load config: %v", err)
		}
	}

	if err := logging.Initialize(config.DecisionLogPath, config.AppLogPath, logging.LogLevel(config.LogLevel)); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %v", err)
	}

	return &config, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wavegatectl %s\n", version)
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <pid>",
	Short: "Report which policy a process would be assigned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		pid, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid pid %q: %v", args[0], err)
		}

		classifier := sandbox.NewClassifier(nil)
		if classifier.IsSandboxed(int32(pid)) {
			fmt.Printf("pid %d: sandboxed, portal policy\n", pid)
		} else {
			fmt.Printf("pid %d: not sandboxed, default policy\n", pid)
		}
		return nil
	},
}

var (
	probePID    uint32
	probeDevice string
	probeWait   time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe-portal",
	Short: "Run a real consent dialog against the desktop portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		if probeDevice != portal.DeviceMicrophone && probeDevice != portal.DeviceSpeakers {
			return fmt.Errorf("device must be %q or %q", portal.DeviceMicrophone, portal.DeviceSpeakers)
		}
		if probePID == 0 {
			probePID = uint32(os.Getpid())
		}

		conn, err := portal.Dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		done := make(chan bool, 1)
		coord := portal.NewCoordinator(conn, logging.App)
		dlg, err := coord.Begin(probePID, probeDevice, func(granted bool) {
			done <- granted
		})
		if err != nil {
			return err
		}

		fmt.Printf("dialog issued for pid %d, device %s; waiting for the user...\n", probePID, probeDevice)
		select {
		case granted := <-done:
			if granted {
				fmt.Println("granted")
			} else {
				fmt.Println("denied")
			}
		case <-time.After(probeWait):
			dlg.Cancel()
			return fmt.Errorf("no portal response within %s", probeWait)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file")

	probeCmd.Flags().Uint32Var(&probePID, "pid", 0, "pid to ask consent for (default: this process)")
	probeCmd.Flags().StringVar(&probeDevice, "device", portal.DeviceSpeakers, "device tag (microphone or speakers)")
	probeCmd.Flags().DurationVar(&probeWait, "wait", 2*time.Minute, "how long to wait for the user")

	rootCmd.AddCommand(versionCmd, classifyCmd, probeCmd, simulateCmd)
}
