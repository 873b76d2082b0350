package attend

import "regexp"

// Rule is the declarative constraint set for one tracked field. Validation
// is synchronous; there are no async rules.
type Rule struct {
	Presence bool
	Pattern  *regexp.Regexp
	Message  string
}

// Field is the state of one tracked input.
type Field struct {
	Value     string
	IsCorrect bool
	IsBlurred bool
	ErrInfo   string
}

func (r Rule) validate(value string) (ok bool, errInfo string) {
	if value == "" {
		if r.Presence {
			return false, "This field is required."
		}
		return true, ""
	}
	if r.Pattern != nil && !r.Pattern.MatchString(value) {
		msg := r.Message
		if msg == "" {
			msg = "This field is invalid."
		}
		return false, msg
	}
	return true, ""
}
