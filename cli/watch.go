package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/trexbooth/network"
)

func newWatchCmd() *cobra.Command {
	var (
		feedURL string
		screen  string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print live feed events from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if feedURL == "" {
				feedURL = defaultFeedURL(cfg.Server.HTTPAddress)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, feedURL, screen, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&feedURL, "url", "", "feed URL (default derived from server.http_address)")
	cmd.Flags().StringVar(&screen, "screen", "", "screen name reported to the server")

	return cmd
}

func defaultFeedURL(httpAddress string) string {
	host := httpAddress
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws/feed"}
	return u.String()
}

// watch prints one line per event until ctx is done or the server goes away.
func watch(ctx context.Context, feedURL, screen string, out io.Writer) error {
	if screen != "" {
		u, err := url.Parse(feedURL)
		if err != nil {
			return err
		}
		q := u.Query()
		q.Set("screen", screen)
		u.RawQuery = q.Encode()
		feedURL = u.String()
	}

	c, _, err := websocket.DefaultDialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", feedURL, err)
	}
	defer c.Close()
	fmt.Fprintf(out, "connected to %s\n", feedURL)

	done := make(chan error, 1)

	// Read loop
	go func() {
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			frame, err := network.Decode(message)
			if err != nil {
				fmt.Fprintf(out, "invalid frame: %s\n", message)
				continue
			}
			fmt.Fprintf(out, "%s %s %s\n", frame.SentAt.Local().Format(time.TimeOnly), frame.Type, frame.Data)
		}
	}()

	select {
	case err := <-done:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		return err
	case <-ctx.Done():
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
}
