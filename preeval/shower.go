package preeval

import "math"

// ShowerMode selects how many render/pre-evaluation errors an error shower
// surfaces.
type ShowerMode int

const (
	// ShowerNone silently ignores every error.
	ShowerNone ShowerMode = iota
	// ShowerOne remembers the shallowest depth at which an error was
	// reported and suppresses deeper duplicates.
	ShowerOne
	// ShowerAll reports every error.
	ShowerAll
)

// Shower is a small cooperative object passed through the pre-evaluation
// and render pipelines; callers read its accumulated state afterward
// rather than having individual failures unwind the whole pass.
type Shower struct {
	Mode   ShowerMode
	Errors []error

	depth int
	count int
}

// NewShower returns a ready to use Shower in the given mode.
func NewShower(mode ShowerMode) *Shower {
	return &Shower{Mode: mode, depth: math.MaxInt}
}

// Accept reports whether an error at curDepth should be recorded, updating
// internal state for ShowerOne's "shallowest wins" rule.
func (s *Shower) Accept(curDepth int) bool {
	switch s.Mode {
	case ShowerAll:
		return true
	case ShowerOne:
		if curDepth < s.depth {
			s.depth = curDepth
			return true
		}
		return false
	default:
		return false
	}
}

// Report records err at curDepth if Accept(curDepth) allows it; Count
// always increases, win or not, so callers can tell how many errors were
// suppressed.
func (s *Shower) Report(curDepth int, err error) {
	s.count++
	if s.Accept(curDepth) {
		s.Errors = append(s.Errors, err)
	}
}

// Count returns the total number of errors reported, accepted or not.
func (s *Shower) Count() int { return s.count }
