package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Raj5489/Share-Me/internal/log"
)

var (
	serverURL string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "shareme",
	Short: "Share files with nearby devices through a relay room",
	Long: `shareme joins an ad-hoc room on a relay server using a short shared
code and streams files to every other device in the room.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logger := log.New(logLevel)
		logger.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "ws://localhost:8080/ws", "relay WebSocket URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(receiveCmd)
}
