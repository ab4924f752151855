package scanner

// Record is the latest observed size for a leak signature.
type Record struct {
	Bytes  uint64
	Blocks uint64
}

// Delta is the size change of a grown leak against its previous observation.
type Delta struct {
	Bytes  int64
	Blocks int64
}

// Class says how an observed leak relates to everything seen so far in the
// run.
type Class int

// Leak classifications.
const (
	ClassNew Class = iota
	ClassDuplicate
	ClassGrown
)

// Dedup maps leak signatures to their latest observed size for one whole
// run. Sanitizers re-report every unreclaimed leak on each subsequent
// failing test case; collapsing the repeats keeps report size proportional
// to distinct problems rather than to run length. The map is never reset,
// not even on application switches: an identical leak under two application
// labels is still the same problem.
type Dedup struct {
	seen map[Signature]Record
}

// NewDedup creates an empty deduplicator.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[Signature]Record)}
}

// Classify records one observation and reports whether it is new, an exact
// repeat, or a grown version of a known leak. Exact repeats change nothing.
// Grown leaks update the stored record and return the deltas.
func (d *Dedup) Classify(sig Signature, bytes, blocks uint64) (Class, Delta) {
	old, found := d.seen[sig]
	if !found {
		d.seen[sig] = Record{Bytes: bytes, Blocks: blocks}

		return ClassNew, Delta{}
	}

	if old.Bytes == bytes && old.Blocks == blocks {
		return ClassDuplicate, Delta{}
	}

	d.seen[sig] = Record{Bytes: bytes, Blocks: blocks}

	delta := Delta{
		Bytes:  int64(bytes) - int64(old.Bytes),
		Blocks: int64(blocks) - int64(old.Blocks),
	}

	return ClassGrown, delta
}

// Len returns the number of distinct signatures seen so far.
func (d *Dedup) Len() int {
	return len(d.seen)
}
