package attend

import (
	"regexp"
	"testing"
)

func testRules() map[string]Rule {
	return map[string]Rule{
		"mail":      {Presence: true, Pattern: regexp.MustCompile(`^\w+([-+.]\w+)*@\w+([-.]\w+)*\.\w+([-.]\w+)*$`), Message: "Email is invalid."},
		"tel":       {Presence: true, Pattern: regexp.MustCompile(`^1(3|4|5|7|8)[0-9]\d{8}$`), Message: "Telephone is invalid."},
		"team_name": {Presence: true},
	}
}

func member(id string, year int) Member {
	return Member{ID: id, DisplayName: "member " + id, EnrollmentYear: year, CitizenSuffix: "123456"}
}

func applyForm(f Form, events ...Event) Form {
	for _, ev := range events {
		f = Apply(f, ev)
	}
	return f
}

func TestApply_FieldValidation(t *testing.T) {
	cases := []struct {
		name        string
		field       string
		value       string
		wantCorrect bool
	}{
		{"empty required field is never correct", "team_name", "", false},
		{"filled required field is correct", "team_name", "ignore everything", true},
		{"mail matching pattern is correct", "mail", "team@example.org", true},
		{"mail violating pattern is incorrect", "mail", "not-a-mail", false},
		{"tel matching pattern is correct", "tel", "13812345678", true},
		{"tel violating pattern is incorrect", "tel", "12345", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Apply(NewForm(testRules(), 2026), FieldChanged{Name: tc.field, Value: tc.value})
			fd := f.Fields[tc.field]
			if fd.IsCorrect != tc.wantCorrect {
				t.Fatalf("IsCorrect: got %v, want %v (errInfo=%q)", fd.IsCorrect, tc.wantCorrect, fd.ErrInfo)
			}
			if !tc.wantCorrect && fd.ErrInfo == "" {
				t.Fatalf("incorrect field must carry an error message")
			}
		})
	}
}

func TestApply_FieldInitValidatesPrefilledValue(t *testing.T) {
	f := Apply(NewForm(testRules(), 2026), FieldInit{Name: "mail", Value: "team@example.org"})
	if !f.Fields["mail"].IsCorrect {
		t.Fatalf("pre-filled valid value must be correct at init")
	}

	f = Apply(NewForm(testRules(), 2026), FieldInit{Name: "mail", Value: ""})
	if f.Fields["mail"].IsCorrect {
		t.Fatalf("pre-filled empty value must not be correct")
	}
}

func TestApply_BlurAndFocusToggleTouched(t *testing.T) {
	f := applyForm(NewForm(testRules(), 2026),
		FieldChanged{Name: "mail", Value: "x"},
		FieldBlurred{Name: "mail"},
	)
	if !f.Fields["mail"].IsBlurred {
		t.Fatalf("expected field marked blurred")
	}
	f = Apply(f, FieldFocused{Name: "mail"})
	if f.Fields["mail"].IsBlurred {
		t.Fatalf("expected focus to clear the blurred mark")
	}
}

func TestCanSubmit(t *testing.T) {
	valid := applyForm(NewForm(testRules(), 2026),
		FieldChanged{Name: "mail", Value: "team@example.org"},
		FieldChanged{Name: "tel", Value: "13812345678"},
		FieldChanged{Name: "team_name", Value: "Wrong Answer"},
		LookupSucceeded{Member: member("s1", 2026)},
	)
	if !CanSubmit(valid) {
		t.Fatalf("expected submittable form")
	}

	if CanSubmit(Apply(valid, MemberRemoved{ID: "s1"})) {
		t.Fatalf("form without members must not be submittable")
	}
	if CanSubmit(Apply(valid, FieldChanged{Name: "mail", Value: "broken"})) {
		t.Fatalf("form with an incorrect field must not be submittable")
	}
}

func TestApply_MemberAddDeduplicatesByID(t *testing.T) {
	f := applyForm(NewForm(testRules(), 2026),
		LookupSucceeded{Member: member("s1", 2026)},
		LookupSucceeded{Member: member("s2", 2026)},
		LookupSucceeded{Member: member("s1", 2026)},
	)
	if len(f.Members) != 2 {
		t.Fatalf("expected 2 members after duplicate add, got %d", len(f.Members))
	}
}

func TestApply_LookupLifecycle(t *testing.T) {
	f := applyForm(NewForm(testRules(), 2026),
		LookupInput{Name: "student_id", Value: "20260001"},
		LookupInput{Name: "citizen_id", Value: "654321"},
		LookupStarted{},
	)
	if !f.IsPosting {
		t.Fatalf("expected lookup lock held")
	}

	ok := Apply(f, LookupSucceeded{Member: member("s1", 2026)})
	if ok.IsPosting {
		t.Fatalf("expected lock released on success")
	}
	if ok.StudentID != "" || ok.CitizenID != "" {
		t.Fatalf("expected lookup inputs cleared on success, got %q/%q", ok.StudentID, ok.CitizenID)
	}

	failed := Apply(f, LookupFailed{})
	if failed.IsPosting {
		t.Fatalf("expected lock released on failure")
	}
	if failed.StudentID != "20260001" {
		t.Fatalf("failure must keep the inputs for a retry")
	}
}

func TestNewbieEligibility(t *testing.T) {
	f := applyForm(NewForm(testRules(), 2026),
		NewbieToggled{On: true},
		LookupSucceeded{Member: member("s1", 2026)},
	)
	if !f.IsNewbie || !CanNewbie(f) {
		t.Fatalf("all-freshman team must stay newbie")
	}

	f = Apply(f, LookupSucceeded{Member: member("s2", 2023)})
	if f.IsNewbie {
		t.Fatalf("adding a non-freshman must clear the newbie flag")
	}
	if CanNewbie(f) {
		t.Fatalf("mixed team must not be newbie-eligible")
	}
}

func TestBuildSubmission(t *testing.T) {
	f := applyForm(NewForm(testRules(), 2026),
		FieldChanged{Name: "mail", Value: "team@example.org"},
		FieldChanged{Name: "tel", Value: "13812345678"},
		FieldChanged{Name: "team_name", Value: "Wrong Answer"},
		NewbieToggled{On: true},
		LookupSucceeded{Member: member("s1", 2026)},
		LookupSucceeded{Member: member("s2", 2026)},
	)

	sub := BuildSubmission(f)
	if sub.TeamName != "Wrong Answer" || sub.Mail != "team@example.org" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if !sub.IsNewbie {
		t.Fatalf("expected newbie submission for all-freshman team")
	}
	if len(sub.MemberIDs) != 2 || sub.MemberIDs[0] != "s1" || sub.MemberIDSuffixes[0] != "123456" {
		t.Fatalf("unexpected member payload: %+v", sub)
	}
}

func TestApply_DoesNotMutateInputForm(t *testing.T) {
	base := applyForm(NewForm(testRules(), 2026),
		FieldChanged{Name: "mail", Value: "team@example.org"},
		LookupSucceeded{Member: member("s1", 2026)},
	)

	_ = Apply(base, FieldChanged{Name: "mail", Value: "other"})
	_ = Apply(base, LookupSucceeded{Member: member("s2", 2026)})
	_ = Apply(base, MemberRemoved{ID: "s1"})

	if base.Fields["mail"].Value != "team@example.org" {
		t.Fatalf("Apply mutated a field of its input")
	}
	if len(base.Members) != 1 {
		t.Fatalf("Apply mutated the member list of its input")
	}
}
