package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raj5489/Share-Me/internal/client"
	"github.com/Raj5489/Share-Me/internal/log"
	"github.com/Raj5489/Share-Me/internal/proto"
)

var sendWaitTimeout time.Duration

var sendCmd = &cobra.Command{
	Use:   "send <room-code> <file>",
	Short: "Stream a file to every other device in a room",
	Args:  cobra.ExactArgs(2),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().DurationVar(&sendWaitTimeout, "wait", 5*time.Minute, "how long to wait for a peer to join")
}

func runSend(cmd *cobra.Command, args []string) error {
	logger := log.New(logLevel)
	room, path := args[0], args[1]

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if stat.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
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

	logger.Info().Str("room", room).Msg("waiting for a peer to join")
	if err := waitForPeer(ctx, cl, sendWaitTimeout); err != nil {
		return err
	}

	meta := client.FileMeta{
		Name:     filepath.Base(path),
		Size:     stat.Size(),
		MimeType: mimeType,
	}
	logger.Info().Str("file", meta.Name).Int64("size", meta.Size).Msg("starting transfer")

	start := time.Now()
	err = cl.SendFile(ctx, meta, file, func(sent, total int64) {
		if total > 0 && sent == total {
			logger.Info().Int64("bytes", sent).Dur("elapsed", time.Since(start)).Msg("all chunks emitted")
		}
	})
	if err != nil {
		return fmt.Errorf("send file: %w", err)
	}

	logger.Info().Str("file", meta.Name).Msg("transfer complete")
	stop()
	<-runDone
	return nil
}

// waitForPeer blocks until another device shares the room, reported by
// either the initial member list or a later join notification.
func waitForPeer(ctx context.Context, cl *client.Client, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case u := <-cl.RoomUpdates:
			switch u.Kind {
			case proto.OutboundTypeUsersInRoom:
				if len(u.Users) > 0 {
					return nil
				}
			case proto.OutboundTypeUserJoined:
				return nil
			case proto.OutboundTypeRoomStatus:
				if u.Count > 1 {
					return nil
				}
			}
		case e := <-cl.ServerErrors:
			return fmt.Errorf("relay rejected join: %s (%s)", e.Msg, e.Code)
		case <-deadline.C:
			return fmt.Errorf("no peer joined within %s", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
