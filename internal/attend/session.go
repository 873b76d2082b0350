package attend

import (
	"context"

	"go.uber.org/zap"
)

// Client is the network surface the session depends on.
type Client interface {
	LookupMember(ctx context.Context, studentID, citizenID string) (Member, error)
	SubmitAttend(ctx context.Context, sub Submission) (redirect string, err error)
}

type Msg interface{ isSessionMsg() }

// Deliver feeds one form event into the session.
type Deliver struct{ Event Event }

func (Deliver) isSessionMsg() {}

// AddMember runs the server-side identity lookup for the current lookup
// inputs. Ignored while a lookup is already in flight.
type AddMember struct{}

func (AddMember) isSessionMsg() {}

// Submit posts the attendance form. Ignored unless CanSubmit holds.
type Submit struct{}

func (Submit) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan FormSnapshot
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type GetForm struct{ Reply chan Form }

func (GetForm) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type lookupDone struct {
	member Member
	err    error
}

func (lookupDone) isSessionMsg() {}

type submitDone struct {
	redirect string
	err      error
}

func (submitDone) isSessionMsg() {}

// Notice is a transient, user-facing message raised by one transition.
type Notice struct{ Message string }

// FormSnapshot is what subscribers receive after every change. Redirect is
// set once, on successful submit; the renderer is expected to navigate.
type FormSnapshot struct {
	Version  int
	Form     Form
	Notices  []Notice
	Redirect string
}

// Session owns one mounted attendance form. Same single-goroutine ownership
// model as the balloon board.
type Session struct {
	inbox   chan Msg
	form    Form
	version int
	subs    map[string]chan FormSnapshot
	client  Client
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewSession(parent context.Context, form Form, client Client, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:  make(chan Msg, 64),
		form:   form,
		subs:   make(map[string]chan FormSnapshot),
		client: client,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.subs[msg.ClientID] = msg.Outbox
				msg.Outbox <- FormSnapshot{Version: s.version, Form: s.form}

			case Leave:
				delete(s.subs, msg.ClientID)

			case Deliver:
				s.apply(msg.Event, nil)

			case AddMember:
				if s.form.IsPosting {
					break
				}
				studentID, citizenID := s.form.StudentID, s.form.CitizenID
				s.apply(LookupStarted{}, nil)
				go s.lookup(studentID, citizenID)

			case lookupDone:
				if msg.err != nil {
					s.log.Warn("member lookup failed", zap.Error(msg.err))
					s.apply(LookupFailed{}, []Notice{{Message: "Student verify failed."}})
					break
				}
				s.apply(LookupSucceeded{Member: msg.member}, nil)

			case Submit:
				if !CanSubmit(s.form) {
					break
				}
				sub := BuildSubmission(s.form)
				go s.submit(sub)

			case submitDone:
				if msg.err != nil {
					s.log.Warn("attend submit failed", zap.Error(msg.err))
					s.broadcast(FormSnapshot{Version: s.version, Form: s.form, Notices: []Notice{{Message: "Attend failed."}}})
					break
				}
				s.broadcast(FormSnapshot{Version: s.version, Form: s.form, Redirect: msg.redirect})

			case GetForm:
				msg.Reply <- s.form

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) lookup(studentID, citizenID string) {
	member, err := s.client.LookupMember(s.ctx, studentID, citizenID)
	s.deliver(lookupDone{member: member, err: err})
}

func (s *Session) submit(sub Submission) {
	redirect, err := s.client.SubmitAttend(s.ctx, sub)
	s.deliver(submitDone{redirect: redirect, err: err})
}

// deliver hands a completion back to the loop; discarded after teardown.
func (s *Session) deliver(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) apply(ev Event, notices []Notice) {
	s.form = Apply(s.form, ev)
	s.version++
	s.broadcast(FormSnapshot{Version: s.version, Form: s.form, Notices: notices})
}

func (s *Session) broadcast(snap FormSnapshot) {
	for id, ch := range s.subs {
		select {
		case ch <- snap:
			// ok
		default:
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}
