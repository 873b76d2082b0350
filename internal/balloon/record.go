package balloon

// Record is one (team, problem) balloon notification as transmitted by the
// contest server. The same shape is used by the bulk load response and by
// every live feed message.
type Record struct {
	ContestID int64  `json:"contest_id"`
	TeamID    int64  `json:"team_id"`
	ProblemID string `json:"problem_id"`
	Solver    string `json:"solver_display_name"`
	Problem   string `json:"problem_label"`
	Delivered bool   `json:"is_delivered"`
}

// Key names exactly one balloon record. No sequence numbers are transmitted,
// so the latest arrival for a key is authoritative.
type Key struct {
	ContestID int64
	TeamID    int64
	ProblemID string
}

func (r Record) Key() Key {
	return Key{ContestID: r.ContestID, TeamID: r.TeamID, ProblemID: r.ProblemID}
}

// Operation is a user-initiated mutation against one record.
type Operation string

const (
	OpSend   Operation = "send"
	OpCancel Operation = "cancel"
)
