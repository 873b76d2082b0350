package balloon

// State is the canonical two-set view of the balloon board. A key lives in
// at most one of Pending/Sent; membership follows the most recently applied
// Delivered value for that key.
type State struct {
	Pending   []Record
	Sent      []Record
	IsLoading bool
	IsPosting bool
}

func NewState() State {
	return State{Pending: []Record{}, Sent: []Record{}}
}

// Event is anything that can change the canonical state: the initial bulk
// load, a feed push, or the lifecycle of a user-initiated action.
type Event interface{ isEvent() }

// BulkLoaded replaces Pending wholesale and clears Sent. The bulk endpoint
// only returns the current pending set, so this is a destructive resync.
type BulkLoaded struct{ Records []Record }

// Pushed is one live feed message. Moving a record between Pending and Sent
// happens only through this event, never through an action result.
type Pushed struct{ Record Record }

type LoadStarted struct{}
type LoadFailed struct{ Message string }

type ActionStarted struct{}
type ActionSucceeded struct{}
type ActionFailed struct{ Message string }

func (BulkLoaded) isEvent()      {}
func (Pushed) isEvent()          {}
func (LoadStarted) isEvent()     {}
func (LoadFailed) isEvent()      {}
func (ActionStarted) isEvent()   {}
func (ActionSucceeded) isEvent() {}
func (ActionFailed) isEvent()    {}

// Level classifies a Notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a transient, user-facing message emitted by a state transition.
// Notices are delivered alongside the snapshot that produced them and are
// never stored in State.
type Notice struct {
	Level   Level
	Message string
}

// Apply folds one event into the state. Pure and total: the input state is
// never mutated, and unknown events leave it unchanged.
func Apply(s State, ev Event) (State, []Notice) {
	switch ev := ev.(type) {
	case BulkLoaded:
		pending := make([]Record, 0, len(ev.Records))
		for _, r := range ev.Records {
			r.Delivered = false
			pending = upsert(pending, r)
		}
		s.Pending = pending
		s.Sent = []Record{}
		s.IsLoading = false
		return s, nil

	case Pushed:
		r := ev.Record
		if r.Delivered {
			s.Pending = drop(s.Pending, r.Key())
			s.Sent = upsert(s.Sent, r)
		} else {
			s.Sent = drop(s.Sent, r.Key())
			s.Pending = upsert(s.Pending, r)
		}
		return s, []Notice{{Level: LevelInfo, Message: "Balloon information changed."}}

	case LoadStarted:
		s.IsLoading = true
		return s, nil

	case LoadFailed:
		s.IsLoading = false
		return s, []Notice{{Level: LevelError, Message: ev.Message}}

	case ActionStarted:
		s.IsPosting = true
		return s, nil

	case ActionSucceeded:
		// The record itself moves via the feed, not here; success only
		// releases the posting lock.
		s.IsPosting = false
		return s, nil

	case ActionFailed:
		s.IsPosting = false
		return s, []Notice{{Level: LevelError, Message: ev.Message}}

	default:
		return s, nil
	}
}

// upsert replaces the record with the same key in place, or appends it.
// Existing insertion order is preserved; duplicates collapse to the newest
// value. The input slice is not modified.
func upsert(list []Record, r Record) []Record {
	out := make([]Record, len(list))
	copy(out, list)
	for i := range out {
		if out[i].Key() == r.Key() {
			out[i] = r
			return out
		}
	}
	return append(out, r)
}

// drop removes the record with the given key, if present. The input slice
// is not modified.
func drop(list []Record, k Key) []Record {
	out := make([]Record, 0, len(list))
	for _, r := range list {
		if r.Key() != k {
			out = append(out, r)
		}
	}
	return out
}
