// Package geometry provides exon and CDS structure handling for a single
// transcript: strand-aware ordering, spliced coordinate mapping and junction
// enumeration.
package geometry

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by structure construction and coordinate mapping.
var (
	// ErrMalformedStructure reports an interval set violating its invariants.
	ErrMalformedStructure = errors.New("malformed structure")
	// ErrOutOfRange reports a coordinate not covered by any exon.
	ErrOutOfRange = errors.New("position out of range")
)

// Strand of a genomic feature.
type Strand int8

// Strand values.
const (
	Unknown Strand = 0
	Forward Strand = 1
	Reverse Strand = -1
)

// ParseStrand converts a GTF strand column to a Strand.
func ParseStrand(s string) Strand {
	switch s {
	case "+":
		return Forward
	case "-":
		return Reverse
	default:
		return Unknown
	}
}

// String returns the GTF representation of the strand.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	default:
		return "."
	}
}

// Interval is a 1-based, inclusive genomic interval.
type Interval struct {
	Seqname string
	Start   int64
	End     int64
	Strand  Strand
}

// Len returns the number of bases in the interval.
func (iv Interval) Len() int64 {
	return iv.End - iv.Start + 1
}

// Contains returns true if pos lies within the interval.
func (iv Interval) Contains(pos int64) bool {
	return pos >= iv.Start && pos <= iv.End
}

// Overlaps returns true if the two intervals share at least one base on the
// same sequence.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Seqname == o.Seqname && iv.Start <= o.End && o.Start <= iv.End
}

// Intersect truncates iv to the part covered by o.
func (iv Interval) Intersect(o Interval) (Interval, bool) {
	if !iv.Overlaps(o) {
		return Interval{}, false
	}
	out := iv
	out.Start = max(iv.Start, o.Start)
	out.End = min(iv.End, o.End)
	return out, true
}

// String formats the interval as seqname:start-end:strand.
func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d:%s", iv.Seqname, iv.Start, iv.End, iv.Strand)
}

// OrderByTranscriptionDirection returns a copy of intervals sorted 5'->3'
// along the transcript: ascending start on the forward strand, descending on
// the reverse strand.
func OrderByTranscriptionDirection(intervals []Interval, strand Strand) []Interval {
	out := make([]Interval, len(intervals))
	copy(out, intervals)
	if strand == Reverse {
		sort.Slice(out, func(i, j int) bool { return out[i].Start > out[j].Start })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	}
	return out
}

// checkIntervals validates the invariants shared by exon and CDS sets and
// returns the intervals sorted by ascending start.
func checkIntervals(kind string, intervals []Interval) ([]Interval, error) {
	first := intervals[0]
	if first.Strand != Forward && first.Strand != Reverse {
		return nil, fmt.Errorf("%w: %s strand %q is not + or -", ErrMalformedStructure, kind, first.Strand)
	}
	for _, iv := range intervals {
		if iv.Start < 1 || iv.Start > iv.End {
			return nil, fmt.Errorf("%w: invalid %s interval %s", ErrMalformedStructure, kind, iv)
		}
		if iv.Seqname != first.Seqname {
			return nil, fmt.Errorf("%w: %s intervals on %q and %q", ErrMalformedStructure, kind, first.Seqname, iv.Seqname)
		}
		if iv.Strand != first.Strand {
			return nil, fmt.Errorf("%w: %s intervals on mixed strands", ErrMalformedStructure, kind)
		}
	}

	sorted := OrderByTranscriptionDirection(intervals, Forward)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start <= sorted[i-1].End {
			return nil, fmt.Errorf("%w: overlapping %s intervals %s and %s", ErrMalformedStructure, kind, sorted[i-1], sorted[i])
		}
	}
	return sorted, nil
}
