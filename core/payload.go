package core

// Parameters, State, StateDelta and StateSummary are nominally distinct
// byte payloads at the VM ABI boundary (spec.md §3). They are plain byte
// slices at runtime; the distinct names exist so the compiler stops a
// caller from passing a delta where a summary is expected.
type (
	Parameters   []byte
	State        []byte
	StateDelta   []byte
	StateSummary []byte
)

// Size returns the payload length in bytes.
func (p Parameters) Size() int   { return len(p) }
func (s State) Size() int        { return len(s) }
func (d StateDelta) Size() int   { return len(d) }
func (s StateSummary) Size() int { return len(s) }
