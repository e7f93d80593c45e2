package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raj5489/Share-Me/internal/client"
	"github.com/Raj5489/Share-Me/internal/log"
)

var (
	receiveOutputDir string
	receiveCount     int
)

var receiveCmd = &cobra.Command{
	Use:   "receive <room-code>",
	Short: "Join a room and save incoming files",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceive,
}

func init() {
	receiveCmd.Flags().StringVarP(&receiveOutputDir, "output", "o", ".", "directory to save received files")
	receiveCmd.Flags().IntVarP(&receiveCount, "count", "n", 1, "number of files to receive before exiting (0 = forever)")
}

func runReceive(cmd *cobra.Command, args []string) error {
	logger := log.New(logLevel)
	room := args[0]

	if err := os.MkdirAll(receiveOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl := client.New(client.Options{URL: serverURL, Logger: logger})
	runDone := make(chan error, 1)
	go func() { runDone <- cl.Run(ctx) }()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := cl.WaitConnected(connectCtx); err != nil {
		return fmt.Errorf("connect to relay: %w", err)
	}

	if err := cl.Join(room); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	logger.Info().Str("room", room).Str("output", receiveOutputDir).Msg("waiting for files")

	received := 0
	for {
		select {
		case artifact := <-cl.Artifacts:
			path, err := saveArtifact(artifact)
			if err != nil {
				logger.Error().Err(err).Str("file", artifact.Session.FileName).Msg("failed to save file")
				continue
			}
			received++
			logger.Info().
				Str("file", path).
				Int64("size", int64(len(artifact.Data))).
				Str("from", artifact.Session.Sender).
				Msg("file received")
			if receiveCount > 0 && received >= receiveCount {
				stop()
				<-runDone
				return nil
			}

		case err := <-cl.TransferErrors:
			logger.Error().Err(err).Msg("incoming transfer failed")

		case e := <-cl.ServerErrors:
			return fmt.Errorf("relay rejected request: %s (%s)", e.Msg, e.Code)

		case <-ctx.Done():
			<-runDone
			return nil
		}
	}
}

// saveArtifact writes the reassembled file, never clobbering an
// existing one.
func saveArtifact(artifact client.Artifact) (string, error) {
	name := filepath.Base(artifact.Session.FileName)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = artifact.Session.FileID
	}

	path := filepath.Join(receiveOutputDir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(name)
		base := name[:len(name)-len(ext)]
		path = filepath.Join(receiveOutputDir, fmt.Sprintf("%s (%d)%s", base, i, ext))
	}

	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
