package jpg

import (
	"bytes"
	"sort"

	"github.com/ankit-chaubey/web-image-meta/core"
)

// ICCSignature starts every APP2 segment that carries an ICC profile
// fragment. It is followed by a 1-based sequence number and the total
// fragment count.
var ICCSignature = []byte("ICC_PROFILE\x00")

const iccHeaderLen = 14

// IsICC reports whether an APP2 payload is an ICC profile fragment.
func IsICC(payload []byte) bool {
	return len(payload) >= iccHeaderLen && bytes.HasPrefix(payload, ICCSignature)
}

// iccSet gathers the ICC fragments of one scan, keyed by sequence number.
type iccSet struct {
	total     int
	fragments map[int][]byte
	err       error
}

func collectICC(segs []Segment) *iccSet {
	set := &iccSet{fragments: make(map[int][]byte)}
	for _, s := range segs {
		if s.Marker != APP2 || !IsICC(s.Payload) {
			continue
		}
		set.add(int(s.Payload[12]), int(s.Payload[13]), s.Payload[iccHeaderLen:])
	}
	return set
}

func (set *iccSet) add(seq, total int, data []byte) {
	if set.err != nil {
		return
	}
	switch {
	case total == 0 || seq == 0 || seq > total:
		set.err = core.Parsef("ICC fragment %d of %d out of range", seq, total)
	case set.total != 0 && set.total != total:
		set.err = core.Parsef("ICC fragments disagree on total: %d and %d", set.total, total)
	case set.fragments[seq] != nil:
		set.err = core.Parsef("duplicate ICC fragment %d", seq)
	default:
		set.total = total
		set.fragments[seq] = data
	}
}

// complete reports whether fragments 1..total are all present.
func (set *iccSet) complete() bool {
	return set.err == nil && set.total > 0 && len(set.fragments) == set.total
}

func (set *iccSet) check() error {
	if set.err != nil {
		return set.err
	}
	if set.total == 0 {
		return nil
	}
	if len(set.fragments) != set.total {
		return core.Parsef("ICC profile has %d of %d fragments", len(set.fragments), set.total)
	}
	return nil
}

func (set *iccSet) assemble() []byte {
	seqs := make([]int, 0, len(set.fragments))
	for seq := range set.fragments {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	var profile []byte
	for _, seq := range seqs {
		profile = append(profile, set.fragments[seq]...)
	}
	return profile
}

// ICCProfile reassembles the ICC profile carried by segs in sequence
// order. ok is false when there is none; an incomplete or inconsistent
// fragment set is a ParseError.
func ICCProfile(segs []Segment) (profile []byte, ok bool, err error) {
	set := collectICC(segs)
	if err := set.check(); err != nil {
		return nil, false, err
	}
	if set.total == 0 {
		return nil, false, nil
	}
	return set.assemble(), true, nil
}

// IsAdobe reports whether an APP14 payload is an Adobe segment with its
// color-transform byte.
func IsAdobe(payload []byte) bool {
	return len(payload) >= 12 && bytes.HasPrefix(payload, []byte("Adobe"))
}
