// Package attend implements the attendance form core: synchronous per-field
// validation, the verified member list, and the submit predicate. It shares
// no state with the balloon board.
package attend

// Member is one verified team member, unique by ID.
type Member struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	ClassLabel     string `json:"class_label"`
	CollegeLabel   string `json:"college_label"`
	EnrollmentYear int    `json:"enrollment_year"`
	CitizenSuffix  string `json:"citizen_id_suffix"`
}

// Form is the canonical state of one mounted attendance form.
type Form struct {
	Fields    map[string]Field
	Rules     map[string]Rule
	Members   []Member
	StudentID string // member lookup input
	CitizenID string // member lookup input
	IsPosting bool   // member lookup in flight; scoped to the member list
	IsNewbie  bool
	Year      int // current enrollment year, injected for determinism
}

// NewForm builds an empty form tracking exactly the given rules.
func NewForm(rules map[string]Rule, year int) Form {
	return Form{
		Fields:  map[string]Field{},
		Rules:   rules,
		Members: []Member{},
		Year:    year,
	}
}

type Event interface{ isFormEvent() }

// FieldInit seeds a possibly pre-filled value and validates it immediately.
type FieldInit struct{ Name, Value string }

// FieldChanged revalidates synchronously on every edit.
type FieldChanged struct{ Name, Value string }

type FieldBlurred struct{ Name string }
type FieldFocused struct{ Name string }

type MembersInit struct{ Members []Member }

// LookupInput edits one of the member lookup boxes ("student_id" or
// "citizen_id").
type LookupInput struct{ Name, Value string }

type LookupStarted struct{}

// LookupSucceeded inserts the verified member, deduplicated by ID, clears
// the lookup inputs and releases the lookup lock.
type LookupSucceeded struct{ Member Member }

type LookupFailed struct{}

type MemberRemoved struct{ ID string }

type NewbieToggled struct{ On bool }

func (FieldInit) isFormEvent()       {}
func (FieldChanged) isFormEvent()    {}
func (FieldBlurred) isFormEvent()    {}
func (FieldFocused) isFormEvent()    {}
func (MembersInit) isFormEvent()     {}
func (LookupInput) isFormEvent()     {}
func (LookupStarted) isFormEvent()   {}
func (LookupSucceeded) isFormEvent() {}
func (LookupFailed) isFormEvent()    {}
func (MemberRemoved) isFormEvent()   {}
func (NewbieToggled) isFormEvent()   {}

// Apply folds one event into the form. Pure and total; the input form is
// never mutated.
func Apply(f Form, ev Event) Form {
	switch ev := ev.(type) {
	case FieldInit:
		return withField(f, ev.Name, func(fd Field) Field {
			fd.Value = ev.Value
			fd.IsCorrect, fd.ErrInfo = f.Rules[ev.Name].validate(ev.Value)
			return fd
		})

	case FieldChanged:
		return withField(f, ev.Name, func(fd Field) Field {
			fd.Value = ev.Value
			fd.IsCorrect, fd.ErrInfo = f.Rules[ev.Name].validate(ev.Value)
			return fd
		})

	case FieldBlurred:
		return withField(f, ev.Name, func(fd Field) Field {
			fd.IsBlurred = true
			return fd
		})

	case FieldFocused:
		return withField(f, ev.Name, func(fd Field) Field {
			fd.IsBlurred = false
			return fd
		})

	case MembersInit:
		members := make([]Member, 0, len(ev.Members))
		for _, m := range ev.Members {
			members = insertMember(members, m)
		}
		f.Members = members
		return f

	case LookupInput:
		switch ev.Name {
		case "student_id":
			f.StudentID = ev.Value
		case "citizen_id":
			f.CitizenID = ev.Value
		}
		return f

	case LookupStarted:
		f.IsPosting = true
		return f

	case LookupSucceeded:
		f.Members = insertMember(f.Members, ev.Member)
		f.IsPosting = false
		f.StudentID = ""
		f.CitizenID = ""
		// A non-freshman member disqualifies the newbie flag for good.
		f.IsNewbie = f.IsNewbie && ev.Member.EnrollmentYear == f.Year
		return f

	case LookupFailed:
		f.IsPosting = false
		return f

	case MemberRemoved:
		members := make([]Member, 0, len(f.Members))
		for _, m := range f.Members {
			if m.ID != ev.ID {
				members = append(members, m)
			}
		}
		f.Members = members
		return f

	case NewbieToggled:
		f.IsNewbie = ev.On
		return f

	default:
		return f
	}
}

// CanSubmit reports whether the form is submittable: every tracked field is
// correct and at least one member is present.
func CanSubmit(f Form) bool {
	for name := range f.Rules {
		if !f.Fields[name].IsCorrect {
			return false
		}
	}
	return len(f.Members) > 0
}

// CanNewbie reports whether the newbie flag may be enabled: every member
// enrolled in the current year. Vacuously true for an empty list.
func CanNewbie(f Form) bool {
	for _, m := range f.Members {
		if m.EnrollmentYear != f.Year {
			return false
		}
	}
	return true
}

// Submission is the attendance submit payload.
type Submission struct {
	Mail             string   `json:"mail"`
	Tel              string   `json:"tel"`
	TeamName         string   `json:"team_name"`
	IsNewbie         bool     `json:"is_newbie"`
	MemberIDs        []string `json:"member_ids"`
	MemberIDSuffixes []string `json:"member_id_suffixes"`
}

// BuildSubmission assembles the submit payload from the current form.
func BuildSubmission(f Form) Submission {
	ids := make([]string, 0, len(f.Members))
	suffixes := make([]string, 0, len(f.Members))
	for _, m := range f.Members {
		ids = append(ids, m.ID)
		suffixes = append(suffixes, m.CitizenSuffix)
	}
	return Submission{
		Mail:             f.Fields["mail"].Value,
		Tel:              f.Fields["tel"].Value,
		TeamName:         f.Fields["team_name"].Value,
		IsNewbie:         f.IsNewbie && CanNewbie(f),
		MemberIDs:        ids,
		MemberIDSuffixes: suffixes,
	}
}

func withField(f Form, name string, fn func(Field) Field) Form {
	fields := make(map[string]Field, len(f.Fields)+1)
	for k, v := range f.Fields {
		fields[k] = v
	}
	fields[name] = fn(fields[name])
	f.Fields = fields
	return f
}

// insertMember appends m unless a member with the same ID already exists;
// the existing entry wins.
func insertMember(members []Member, m Member) []Member {
	for _, existing := range members {
		if existing.ID == m.ID {
			return members
		}
	}
	out := make([]Member, len(members), len(members)+1)
	copy(out, members)
	return append(out, m)
}
