// Package cache provides transcript loading and lookup.
package cache

import "github.com/inodb/vibe-nmd/internal/geometry"

// Transcript represents one assembled or annotated isoform.
type Transcript struct {
	ID       string          // Transcript ID (e.g., ENST00000311936, MSTRG.12.3)
	GeneID   string          // Parent gene ID
	GeneName string          // Parent gene symbol
	Chrom    string          // Chromosome
	Start    int64           // Transcript start (1-based)
	End      int64           // Transcript end (1-based, inclusive)
	Strand   geometry.Strand // Forward, Reverse or Unknown
	Biotype  string          // Transcript biotype
	Exons    []Exon          // Exons in ascending genomic order
	CDS      []Region        // Coding regions including the stop codon, ascending
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Number int   // Exon number (1-based), 0 if not given
	Start  int64 // Genomic start (1-based)
	End    int64 // Genomic end (1-based, inclusive)
}

// Region is a 1-based inclusive genomic span.
type Region struct {
	Start int64
	End   int64
}

// IsProteinCoding returns true if the transcript has a coding sequence.
func (t *Transcript) IsProteinCoding() bool {
	return len(t.CDS) > 0
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == geometry.Forward
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == geometry.Reverse
}

// Contains returns true if the given position is within the transcript boundaries.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// Overlaps returns true if the transcript span overlaps [start, end].
func (t *Transcript) Overlaps(start, end int64) bool {
	return t.Start <= end && start <= t.End
}

// CDSStart returns the lowest genomic coordinate of the CDS, 0 if non-coding.
func (t *Transcript) CDSStart() int64 {
	if len(t.CDS) == 0 {
		return 0
	}
	return t.CDS[0].Start
}

// CDSEnd returns the highest genomic coordinate of the CDS, 0 if non-coding.
func (t *Transcript) CDSEnd() int64 {
	if len(t.CDS) == 0 {
		return 0
	}
	return t.CDS[len(t.CDS)-1].End
}

// ExonIntervals returns the exons as geometry intervals.
func (t *Transcript) ExonIntervals() []geometry.Interval {
	out := make([]geometry.Interval, len(t.Exons))
	for i, e := range t.Exons {
		out[i] = geometry.Interval{Seqname: t.Chrom, Start: e.Start, End: e.End, Strand: t.Strand}
	}
	return out
}

// CDSIntervals returns the coding regions as geometry intervals.
func (t *Transcript) CDSIntervals() []geometry.Interval {
	out := make([]geometry.Interval, len(t.CDS))
	for i, r := range t.CDS {
		out[i] = geometry.Interval{Seqname: t.Chrom, Start: r.Start, End: r.End, Strand: t.Strand}
	}
	return out
}
