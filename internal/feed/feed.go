// Package feed maintains the persistent balloon feed connection. It decodes
// inbound messages and forwards them as events; it does not buffer, replay,
// or deduplicate - ordering and merge policy live in the reducer.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/contestkit/balloonpad/internal/balloon"
)

// ErrClosed reports that the connection ended, cleanly or not. The caller
// must treat the current view as stale and run a full reload before
// re-dialing; the feed never reconnects on its own.
var ErrClosed = errors.New("feed connection closed")

type Feed struct {
	conn *websocket.Conn
	log  *zap.Logger
}

// Dial establishes one persistent connection to the balloon feed endpoint.
func Dial(ctx context.Context, endpoint string, log *zap.Logger) (*Feed, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial balloon feed: %w", err)
	}
	return &Feed{conn: conn, log: log}, nil
}

// Run reads messages until the connection ends and hands each one to deliver
// as a Pushed event. It always returns a non-nil error wrapping ErrClosed
// (or the context error); a malformed message is logged and skipped, not
// fatal.
func (f *Feed) Run(ctx context.Context, deliver func(balloon.Event)) error {
	defer f.conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		_, data, err := f.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				f.log.Info("balloon feed closed by server")
			default:
				f.log.Warn("balloon feed read failed", zap.Error(err))
			}
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}

		var rec balloon.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			f.log.Warn("bad feed message", zap.ByteString("payload", data), zap.Error(err))
			continue
		}
		deliver(balloon.Pushed{Record: rec})
	}
}

// Close tears the connection down without the usual close handshake.
func (f *Feed) Close() error {
	return f.conn.CloseNow()
}
