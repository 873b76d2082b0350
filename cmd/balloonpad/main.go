// Command balloonpad mounts the balloon board against a contest server and
// renders it to the terminal. The feed supervisor implements the recovery
// policy: every disconnect causes a full reload before reconnecting.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/contestkit/balloonpad/internal/api"
	"github.com/contestkit/balloonpad/internal/balloon"
	"github.com/contestkit/balloonpad/internal/board"
	"github.com/contestkit/balloonpad/internal/feed"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	apiURL := getenv("BALLOONPAD_API_URL", "http://localhost:8888/contest")
	feedURL := getenv("BALLOONPAD_FEED_URL", "ws://localhost:8888/contest/balloon-conn")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.New(apiURL, http.DefaultClient, log)
	b := board.New(ctx, client, log)

	out := make(chan board.Snapshot, 16)
	b.Inbox() <- board.Join{ClientID: "terminal", Outbox: out}

	log.Info("balloonpad starting", zap.String("api", apiURL), zap.String("feed", feedURL))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return superviseFeed(gctx, b, feedURL, log) })
	g.Go(func() error { render(out); return nil })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("balloonpad exited", zap.Error(err))
		os.Exit(1)
	}
}

// superviseFeed reloads the whole view on every disconnect, then dials a
// fresh connection. The client never resyncs a live feed in place.
func superviseFeed(ctx context.Context, b *board.Board, endpoint string, log *zap.Logger) error {
	for {
		b.Inbox() <- board.Reload{}

		f, err := feed.Dial(ctx, endpoint, log)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("feed dial failed", zap.Error(err))
		} else {
			err = f.Run(ctx, func(ev balloon.Event) {
				b.Inbox() <- board.Deliver{Event: ev}
			})
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("feed disconnected, reloading", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func render(out <-chan board.Snapshot) {
	for snap := range out {
		for _, n := range snap.Notices {
			fmt.Printf("[%s] %s\n", n.Level, n.Message)
		}
		fmt.Printf("== v%d pending(%d) sent(%d)%s\n",
			snap.Version, snap.View.PendingCount, snap.View.SentCount, busyMarker(snap.View))
		for _, row := range snap.View.Pending {
			fmt.Printf("   pending  team %-4d %-3s %s\n", row.TeamID, row.ProblemID, row.Solver)
		}
		for _, row := range snap.View.Sent {
			fmt.Printf("   sent     team %-4d %-3s %s\n", row.TeamID, row.ProblemID, row.Solver)
		}
	}
}

func busyMarker(v balloon.View) string {
	if v.Busy {
		return " [busy]"
	}
	return ""
}
