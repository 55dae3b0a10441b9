package session

import (
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/tosih/map-rescaler/pkg/models"
)

// State is the position of a Session in its editing workflow.
type State int

const (
	Loaded State = iota
	Decoded
	Edited
	Committed
	Exported
	Failed
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Decoded:
		return "decoded"
	case Edited:
		return "edited"
	case Committed:
		return "committed"
	case Exported:
		return "exported"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session owns one firmware image through a decode, rescale, commit and
// export sequence. Its methods are serialized; a failed codec or rescale
// step moves it to Failed, from which only Restart recovers.
type Session struct {
	mu  sync.Mutex
	log hclog.Logger

	catalog  *models.Catalog
	original *models.Image

	state     State
	decoded   *models.Decoded
	proposal  *Proposal
	committed []byte
	err       error
}

// New starts a session on a private copy of img.
func New(catalog *models.Catalog, img *models.Image, logger hclog.Logger) *Session {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Session{
		log:      logger.Named("session"),
		catalog:  catalog,
		original: img.Clone(),
		state:    Loaded,
	}
	s.log.Debug("image loaded", "image", img.Name, "bytes", img.Len())
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session to Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Catalog returns the catalog the session decodes against.
func (s *Session) Catalog() *models.Catalog { return s.catalog }

// ImageName returns the name of the loaded image.
func (s *Session) ImageName() string { return s.original.Name }

// Decoded returns the current decode, or nil before Select.
func (s *Session) Decoded() *models.Decoded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoded
}

// Proposal returns the current proposal, or nil before Rescale.
func (s *Session) Proposal() *Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proposal
}

// Select decodes the named variant from the original image. Selecting
// again, or after a rescale, discards the previous decode and proposal.
func (s *Session) Select(variant string) (*models.Decoded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("select", Loaded, Decoded, Edited); err != nil {
		return nil, err
	}
	dec, err := Decode(s.catalog, s.original.Data, variant)
	if err != nil {
		return nil, s.fail("select", err)
	}
	s.decoded = dec
	s.proposal = nil
	s.transition(Decoded, "variant", variant, "tables", len(dec.Tables), "axes", len(dec.Axes))
	return dec, nil
}

// Rescale computes a proposal for newAxis from the current decode.
// Rescaling again replaces the previous proposal.
func (s *Session) Rescale(newAxis models.Axis) (*Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("rescale", Decoded, Edited); err != nil {
		return nil, err
	}
	p, err := Rescale(s.decoded, newAxis)
	if err != nil {
		return nil, s.fail("rescale", err)
	}
	s.proposal = p
	s.transition(Edited, "variant", p.Variant, "rows", len(newAxis))
	return p, nil
}

// Commit writes the current proposal into a copy of the original image.
// The original is never modified; on failure the session moves to Failed.
func (s *Session) Commit(opts CommitOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("commit", Edited); err != nil {
		return nil, err
	}
	out, err := Commit(s.original.Data, s.decoded.Variant, s.proposal, opts)
	if err != nil {
		return nil, s.fail("commit", err)
	}
	s.committed = out
	s.transition(Committed, "variant", s.proposal.Variant,
		"keep_secondary", opts.KeepSecondary, "keep_secondary_axis", opts.KeepSecondaryAxis)
	return cloneBytes(out), nil
}

// Export writes the committed image to w.
func (s *Session) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("export", Committed, Exported); err != nil {
		return err
	}
	if _, err := w.Write(s.committed); err != nil {
		return s.fail("export", fmt.Errorf("session: could not write image: %w", err))
	}
	s.transition(Exported, "bytes", len(s.committed))
	return nil
}

// Restart returns the session to Loaded on the original image, dropping
// any decode, proposal, commit or failure.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decoded = nil
	s.proposal = nil
	s.committed = nil
	s.err = nil
	s.transition(Loaded)
}

func (s *Session) expect(op string, states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s in state %s", models.ErrInvalidState, op, s.state)
}

func (s *Session) fail(op string, err error) error {
	s.err = err
	s.log.Error("operation failed", "op", op, "from", s.state.String(), "error", err)
	s.state = Failed
	return err
}

func (s *Session) transition(to State, kv ...any) {
	args := append([]any{"from", s.state.String(), "to", to.String()}, kv...)
	s.log.Info("state change", args...)
	s.state = to
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
