package submission

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// State is a form's position in the submit lifecycle.
type State int

const (
	Draft State = iota
	Submitting
	Submitted
	Failed
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// keyNamespace scopes request ids derived from caller idempotency keys.
var keyNamespace = uuid.MustParse("6f1c63a2-4f0e-5b7e-9d1e-5a3b2c1d0e9f")

// Form tracks one user-facing submission across attempts.
type Form struct {
	mu        sync.Mutex
	requestID uuid.UUID
	keyed     bool
	state     State
	id        string
	lastErr   error
}

// NewForm starts a draft with a fresh request id.
func NewForm() *Form {
	return &Form{requestID: uuid.New()}
}

// NewFormWithKey starts a draft whose request id is derived from the caller
// scope and key. The same caller resending the same key and payload maps to the
// same document; another caller, or another payload, never does.
func NewFormWithKey(scope, key string) *Form {
	key = strings.TrimSpace(key)
	if key == "" {
		return NewForm()
	}
	name := strings.TrimSpace(scope) + "\x00" + key
	return &Form{requestID: uuid.NewSHA1(keyNamespace, []byte(name)), keyed: true}
}

func (f *Form) RequestID() uuid.UUID { return f.requestID }

// documentID is the store _id for doc. Keyed forms fold the payload in so a
// reused key carrying different content becomes its own document.
func (f *Form) documentID(doc Document) string {
	if !f.keyed {
		return DocumentIDFor(doc.Kind(), f.requestID)
	}
	return DocumentIDFor(doc.Kind(), uuid.NewSHA1(f.requestID, doc.fingerprint()))
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ID returns the stored document id once the form is Submitted.
func (f *Form) ID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

// Err returns the error of the last failed attempt.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Edit returns a failed form to Draft.
func (f *Form) Edit() error {
	return f.transition(Draft, func(from State) bool { return from == Failed })
}

func (f *Form) begin() error {
	return f.transition(Submitting, func(from State) bool { return from == Draft || from == Failed })
}

func (f *Form) complete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Submitted
	f.id = id
	f.lastErr = nil
}

func (f *Form) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Failed
	f.lastErr = err
}

func (f *Form) transition(to State, allowed func(State) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !allowed(f.state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, to)
	}
	f.state = to
	return nil
}
