package geometry

import "fmt"

// ExonSet is the validated exon structure of one transcript. Intervals are
// held in ascending genomic order regardless of strand.
type ExonSet struct {
	seqname string
	strand  Strand
	exons   []Interval
}

// NewExonSet validates intervals and builds an ExonSet. The set must be
// non-empty, on a single seqname and a known strand, and non-overlapping.
func NewExonSet(intervals []Interval) (ExonSet, error) {
	if len(intervals) == 0 {
		return ExonSet{}, fmt.Errorf("%w: empty exon set", ErrMalformedStructure)
	}
	sorted, err := checkIntervals("exon", intervals)
	if err != nil {
		return ExonSet{}, err
	}
	return ExonSet{seqname: sorted[0].Seqname, strand: sorted[0].Strand, exons: sorted}, nil
}

// Seqname returns the sequence name shared by all exons.
func (s ExonSet) Seqname() string { return s.seqname }

// Strand returns the strand shared by all exons.
func (s ExonSet) Strand() Strand { return s.strand }

// Len returns the number of exons.
func (s ExonSet) Len() int { return len(s.exons) }

// Intervals returns the exons in ascending genomic order.
func (s ExonSet) Intervals() []Interval {
	out := make([]Interval, len(s.exons))
	copy(out, s.exons)
	return out
}

// Ordered returns the exons 5'->3' along the transcript.
func (s ExonSet) Ordered() []Interval {
	return OrderByTranscriptionDirection(s.exons, s.strand)
}

// SplicedLength returns the total exonic length.
func (s ExonSet) SplicedLength() int64 {
	var n int64
	for _, e := range s.exons {
		n += e.Len()
	}
	return n
}

// ValidateCDS checks that cds lies on the same seqname and strand as the
// exons and that every CDS interval is contained in a single exon.
func (s ExonSet) ValidateCDS(cds CDSSet) error {
	if cds.Empty() {
		return nil
	}
	if cds.seqname != s.seqname {
		return fmt.Errorf("%w: CDS on %q, exons on %q", ErrMalformedStructure, cds.seqname, s.seqname)
	}
	if cds.strand != s.strand {
		return fmt.Errorf("%w: CDS strand %s, exon strand %s", ErrMalformedStructure, cds.strand, s.strand)
	}
	for _, c := range cds.cds {
		contained := false
		for _, e := range s.exons {
			if part, ok := c.Intersect(e); ok && part == c {
				contained = true
				break
			}
		}
		if !contained {
			return fmt.Errorf("%w: CDS interval %s not contained in an exon", ErrMalformedStructure, c)
		}
	}
	return nil
}

// CDSSet is the validated coding region of one transcript. An empty CDSSet
// describes a non-coding transcript.
type CDSSet struct {
	seqname string
	strand  Strand
	cds     []Interval
}

// NewCDSSet validates intervals and builds a CDSSet. An empty slice yields an
// empty set.
func NewCDSSet(intervals []Interval) (CDSSet, error) {
	if len(intervals) == 0 {
		return CDSSet{}, nil
	}
	sorted, err := checkIntervals("CDS", intervals)
	if err != nil {
		return CDSSet{}, err
	}
	return CDSSet{seqname: sorted[0].Seqname, strand: sorted[0].Strand, cds: sorted}, nil
}

// Empty returns true for a non-coding transcript.
func (s CDSSet) Empty() bool { return len(s.cds) == 0 }

// Len returns the number of CDS intervals.
func (s CDSSet) Len() int { return len(s.cds) }

// Seqname returns the sequence name of the CDS, empty if the set is empty.
func (s CDSSet) Seqname() string { return s.seqname }

// Strand returns the strand of the CDS, Unknown if the set is empty.
func (s CDSSet) Strand() Strand { return s.strand }

// Intervals returns the CDS intervals in ascending genomic order.
func (s CDSSet) Intervals() []Interval {
	out := make([]Interval, len(s.cds))
	copy(out, s.cds)
	return out
}

// Ordered returns the CDS intervals 5'->3' along the transcript.
func (s CDSSet) Ordered() []Interval {
	return OrderByTranscriptionDirection(s.cds, s.strand)
}

// TerminalBase returns the genomic coordinate of the 3'-most CDS base.
func (s CDSSet) TerminalBase() (int64, error) {
	if s.Empty() {
		return 0, fmt.Errorf("%w: empty CDS has no terminal base", ErrMalformedStructure)
	}
	if s.strand == Reverse {
		return s.cds[0].Start, nil
	}
	return s.cds[len(s.cds)-1].End, nil
}
