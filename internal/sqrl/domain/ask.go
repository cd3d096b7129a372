package domain

// AskButton is one choice on an Ask question. URL is where the client
// navigates after pressing it, if anywhere.
type AskButton struct {
	Label string
	URL   string
}

// AskQuestion is shown by the client before it completes a login.
type AskQuestion struct {
	Message string
	Button1 *AskButton
	Button2 *AskButton
}

// Valid reports whether q can be attached to a nut: button 1 is mandatory.
func (q *AskQuestion) Valid() bool {
	return q != nil && q.Button1 != nil && q.Button1.Label != ""
}

// HasButton reports whether button n (1 or 2) exists on q.
func (q *AskQuestion) HasButton(n int) bool {
	switch n {
	case 1:
		return q.Button1 != nil
	case 2:
		return q.Button2 != nil
	default:
		return false
	}
}

// Clone returns a deep copy so registry snapshots can't be mutated.
func (q *AskQuestion) Clone() *AskQuestion {
	if q == nil {
		return nil
	}
	cp := *q
	if q.Button1 != nil {
		b := *q.Button1
		cp.Button1 = &b
	}
	if q.Button2 != nil {
		b := *q.Button2
		cp.Button2 = &b
	}
	return &cp
}

// AskState is the poll-visible state of a question.
type AskState string

const (
	AskPending  AskState = "pending"
	AskResolved AskState = "resolved"
	AskExpired  AskState = "expired"
)

// AskStatus is the result of polling. Accepted is only meaningful when
// State is AskResolved.
type AskStatus struct {
	State    AskState
	Accepted bool
}
