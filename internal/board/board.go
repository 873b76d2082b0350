package board

import (
	"context"

	"go.uber.org/zap"

	"github.com/contestkit/balloonpad/internal/balloon"
)

// Client is the network surface the board depends on. The api package
// provides the real implementation; tests provide fakes.
type Client interface {
	LoadPending(ctx context.Context) ([]balloon.Record, error)
	PostAction(ctx context.Context, op balloon.Operation, key balloon.Key) error
}

type Msg interface{ isBoardMsg() }

// Deliver feeds one event into the board. The feed connector and the
// board's own request goroutines both use it.
type Deliver struct {
	Event balloon.Event
}

func (Deliver) isBoardMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this subscriber wants to receive snapshots
}

func (Join) isBoardMsg() {}

type Leave struct{ ClientID string }

func (Leave) isBoardMsg() {}

// Send requests delivery of the balloon named by Key. Ignored while another
// action is posting.
type Send struct{ Key balloon.Key }

func (Send) isBoardMsg() {}

// Cancel revokes a delivered balloon. Same lock semantics as Send.
type Cancel struct{ Key balloon.Key }

func (Cancel) isBoardMsg() {}

// Reload runs the one-shot bulk load. Issued once at mount and again after
// every feed disconnect.
type Reload struct{}

func (Reload) isBoardMsg() {}

type Shutdown struct{}

func (Shutdown) isBoardMsg() {}

type GetState struct {
	Reply chan StateView
}

func (GetState) isBoardMsg() {}

// Snapshot is what subscribers receive after every state change. Notices
// are the transient messages raised by that one transition.
type Snapshot struct {
	Version int
	View    balloon.View
	Notices []balloon.Notice
}

// StateView reflects board internals without data races; test-only.
type StateView struct {
	Version        int
	NumSubscribers int
	State          balloon.State
}

// Board owns the canonical balloon state for one mounted view. All state
// mutation happens on its single loop goroutine; network completions come
// back in through the inbox like any other event.
type Board struct {
	inbox   chan Msg
	state   balloon.State
	version int
	subs    map[string]chan Snapshot
	client  Client
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, client Client, log *zap.Logger) *Board {
	ctx, cancel := context.WithCancel(parent)

	b := &Board{
		inbox:  make(chan Msg, 64),
		state:  balloon.NewState(),
		subs:   make(map[string]chan Snapshot),
		client: client,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	go b.loop()
	return b
}

func (b *Board) Inbox() chan<- Msg { return b.inbox }

func (b *Board) loop() {
	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case m := <-b.inbox:
			switch msg := m.(type) {
			case Join:
				// Register subscriber + send the current snapshot immediately.
				b.subs[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: b.version, View: balloon.Project(b.state)}

			case Leave:
				delete(b.subs, msg.ClientID)

			case Deliver:
				b.apply(msg.Event)

			case Send:
				b.startAction(balloon.OpSend, msg.Key)

			case Cancel:
				b.startAction(balloon.OpCancel, msg.Key)

			case Reload:
				if b.state.IsLoading {
					break
				}
				b.apply(balloon.LoadStarted{})
				go b.load()

			case GetState:
				msg.Reply <- StateView{
					Version:        b.version,
					NumSubscribers: len(b.subs),
					State:          b.state,
				}

			case Shutdown:
				b.shutdown()
				return
			}
		}
	}
}

// startAction enforces the global posting lock: a second action while one is
// in flight is rejected at the call site, not queued.
func (b *Board) startAction(op balloon.Operation, key balloon.Key) {
	if b.state.IsPosting {
		b.log.Debug("action rejected while posting",
			zap.String("op", string(op)),
			zap.Int64("team", key.TeamID),
			zap.String("problem", key.ProblemID))
		return
	}
	b.apply(balloon.ActionStarted{})
	go b.post(op, key)
}

// post issues exactly one mutation request and reports its outcome back as
// an event. No retry; a manual retry re-enters through Send/Cancel.
func (b *Board) post(op balloon.Operation, key balloon.Key) {
	if err := b.client.PostAction(b.ctx, op, key); err != nil {
		b.log.Warn("balloon action failed", zap.String("op", string(op)), zap.Error(err))
		b.deliver(balloon.ActionFailed{Message: err.Error()})
		return
	}
	b.deliver(balloon.ActionSucceeded{})
}

func (b *Board) load() {
	records, err := b.client.LoadPending(b.ctx)
	if err != nil {
		b.log.Warn("bulk load failed", zap.Error(err))
		b.deliver(balloon.LoadFailed{Message: err.Error()})
		return
	}
	b.deliver(balloon.BulkLoaded{Records: records})
}

// deliver hands a completion back to the loop. A completion that arrives
// after teardown is discarded with the board.
func (b *Board) deliver(ev balloon.Event) {
	select {
	case b.inbox <- Deliver{Event: ev}:
	case <-b.ctx.Done():
	}
}

func (b *Board) apply(ev balloon.Event) {
	state, notices := balloon.Apply(b.state, ev)
	b.state = state
	b.version++
	b.broadcast(Snapshot{Version: b.version, View: balloon.Project(b.state), Notices: notices})
}

func (b *Board) broadcast(snap Snapshot) {
	for id, ch := range b.subs {
		select {
		case ch <- snap:
			// ok
		default:
			// Subscriber is slow/full - drop them.
			close(ch)
			delete(b.subs, id)
		}
	}
}

func (b *Board) shutdown() {
	for id, ch := range b.subs {
		close(ch) // Tell subscriber no more snapshots
		delete(b.subs, id)
	}
	b.cancel()
}
