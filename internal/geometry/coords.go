package geometry

import "fmt"

// Junction is an exon-exon junction in transcriptional order.
type Junction struct {
	Donor    int64 // Genomic coordinate of the last base of the upstream exon
	Acceptor int64 // Genomic coordinate of the first base of the downstream exon
	Spliced  int64 // Spliced coordinate of the donor base
}

// ToSplicedCoordinate converts a genomic position to a 1-based position in the
// spliced transcript, counted from the 5' end.
func ToSplicedCoordinate(pos int64, exons ExonSet) (int64, error) {
	var spliced int64
	for _, e := range exons.Ordered() {
		if e.Contains(pos) {
			if exons.strand == Reverse {
				return spliced + e.End - pos + 1, nil
			}
			return spliced + pos - e.Start + 1, nil
		}
		spliced += e.Len()
	}
	return 0, fmt.Errorf("%w: %s:%d is not exonic", ErrOutOfRange, exons.seqname, pos)
}

// FromSplicedCoordinate converts a 1-based spliced position back to its
// genomic coordinate.
func FromSplicedCoordinate(spliced int64, exons ExonSet) (int64, error) {
	if spliced < 1 {
		return 0, fmt.Errorf("%w: spliced position %d", ErrOutOfRange, spliced)
	}
	var cumulative int64
	for _, e := range exons.Ordered() {
		if cumulative+e.Len() >= spliced {
			offset := spliced - cumulative - 1
			if exons.strand == Reverse {
				return e.End - offset, nil
			}
			return e.Start + offset, nil
		}
		cumulative += e.Len()
	}
	return 0, fmt.Errorf("%w: spliced position %d beyond transcript length %d", ErrOutOfRange, spliced, cumulative)
}

// Junctions returns the exon-exon junctions 5'->3'. A single-exon transcript
// has none.
func Junctions(exons ExonSet) []Junction {
	ordered := exons.Ordered()
	if len(ordered) < 2 {
		return nil
	}
	junctions := make([]Junction, 0, len(ordered)-1)
	var spliced int64
	for i := 0; i < len(ordered)-1; i++ {
		up, down := ordered[i], ordered[i+1]
		spliced += up.Len()
		j := Junction{Spliced: spliced}
		if exons.strand == Reverse {
			j.Donor, j.Acceptor = up.Start, down.End
		} else {
			j.Donor, j.Acceptor = up.End, down.Start
		}
		junctions = append(junctions, j)
	}
	return junctions
}

// LastExonStart returns the 5' boundary of the final exon in transcriptional
// order, or 0 for an empty set. Classification does not call it: a stop codon
// in the terminal exon shows as StopToLastEJ < 0. It is kept for callers
// working in genomic coordinates.
func LastExonStart(exons ExonSet) int64 {
	ordered := exons.Ordered()
	if len(ordered) == 0 {
		return 0
	}
	last := ordered[len(ordered)-1]
	if exons.strand == Reverse {
		return last.End
	}
	return last.Start
}

// InLastExon returns true if pos lies in the final exon. Like LastExonStart
// it is a genomic-coordinate helper for callers; classification does not call it.
func InLastExon(pos int64, exons ExonSet) bool {
	ordered := exons.Ordered()
	if len(ordered) == 0 {
		return false
	}
	return ordered[len(ordered)-1].Contains(pos)
}
