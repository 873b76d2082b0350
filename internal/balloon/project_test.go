package balloon

import "testing"

func TestProject_OrdersByTeamThenProblem(t *testing.T) {
	s := applyAll(NewState(),
		Pushed{Record: rec(1, 9, "B", false)},
		Pushed{Record: rec(1, 3, "C", false)},
		Pushed{Record: rec(1, 3, "A", false)},
	)

	v := Project(s)
	want := []Key{{1, 3, "A"}, {1, 3, "C"}, {1, 9, "B"}}
	if len(v.Pending) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(v.Pending))
	}
	for i, row := range v.Pending {
		if row.Key() != want[i] {
			t.Fatalf("row %d: got %v, want %v", i, row.Key(), want[i])
		}
	}
}

func TestProject_ButtonStatesFollowPostingLock(t *testing.T) {
	s := applyAll(NewState(),
		Pushed{Record: rec(1, 5, "A", false)},
		Pushed{Record: rec(1, 6, "B", true)},
	)

	v := Project(s)
	if !v.Pending[0].CanSend || v.Pending[0].CanCancel {
		t.Fatalf("idle pending row: got CanSend=%v CanCancel=%v", v.Pending[0].CanSend, v.Pending[0].CanCancel)
	}
	if !v.Sent[0].CanCancel || v.Sent[0].CanSend {
		t.Fatalf("idle sent row: got CanSend=%v CanCancel=%v", v.Sent[0].CanSend, v.Sent[0].CanCancel)
	}

	s = applyAll(s, ActionStarted{})
	v = Project(s)
	if v.Pending[0].CanSend || v.Sent[0].CanCancel {
		t.Fatalf("posting must disable every row action")
	}
	if !v.Busy || !v.IsPosting {
		t.Fatalf("expected busy view while posting")
	}
}

func TestProject_CountsAndLoadingFlag(t *testing.T) {
	s := applyAll(NewState(),
		LoadStarted{},
		BulkLoaded{Records: []Record{rec(1, 5, "A", false), rec(1, 6, "B", false)}},
		Pushed{Record: rec(1, 5, "A", true)},
	)

	v := Project(s)
	if v.PendingCount != 1 || v.SentCount != 1 {
		t.Fatalf("counts: got pending=%d sent=%d", v.PendingCount, v.SentCount)
	}
	if v.IsLoading || v.Busy {
		t.Fatalf("expected idle view after load completed")
	}
}

func TestProject_IsPureRecompute(t *testing.T) {
	s := applyAll(NewState(), Pushed{Record: rec(1, 9, "B", false)}, Pushed{Record: rec(1, 3, "A", false)})

	_ = Project(s)
	// Projection sorts a copy; canonical insertion order must survive.
	if s.Pending[0].Key() != (Key{1, 9, "B"}) {
		t.Fatalf("projection reordered canonical state: %v", keysOf(s.Pending))
	}
}
