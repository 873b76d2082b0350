package balloon

import (
	"cmp"
	"slices"
)

// ViewRecord is one presentation-ready row.
type ViewRecord struct {
	Record
	CanSend   bool
	CanCancel bool
}

// View is the full presentation model. It carries no hidden state and is
// recomputed from scratch on every change.
type View struct {
	Pending      []ViewRecord
	Sent         []ViewRecord
	PendingCount int
	SentCount    int
	IsLoading    bool
	IsPosting    bool
	Busy         bool
}

// Project derives the view model from the canonical state. Rows are ordered
// by team, then problem, for display.
func Project(s State) View {
	return View{
		Pending:      projectSection(s.Pending, s.IsPosting),
		Sent:         projectSection(s.Sent, s.IsPosting),
		PendingCount: len(s.Pending),
		SentCount:    len(s.Sent),
		IsLoading:    s.IsLoading,
		IsPosting:    s.IsPosting,
		Busy:         s.IsLoading || s.IsPosting,
	}
}

func projectSection(records []Record, posting bool) []ViewRecord {
	rows := make([]ViewRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, ViewRecord{
			Record:    r,
			CanSend:   !posting && !r.Delivered,
			CanCancel: !posting && r.Delivered,
		})
	}
	slices.SortStableFunc(rows, func(a, b ViewRecord) int {
		if c := cmp.Compare(a.TeamID, b.TeamID); c != 0 {
			return c
		}
		return cmp.Compare(a.ProblemID, b.ProblemID)
	})
	return rows
}
