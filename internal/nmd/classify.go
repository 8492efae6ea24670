// Package nmd predicts whether transcripts are targets of nonsense-mediated
// decay from their exon structure and coding sequence.
package nmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/inodb/vibe-nmd/internal/geometry"
)

// DefaultThreshold is the distance in nucleotides between the stop codon and
// the last exon-exon junction above which a transcript is NMD-sensitive.
const DefaultThreshold int64 = 50

// ErrNoCDS reports a transcript without a coding sequence.
var ErrNoCDS = errors.New("transcript has no CDS")

// Result is the NMD prediction for one transcript.
type Result struct {
	TranscriptID string
	StopToLastEJ int64 // Spliced distance from stop codon to last junction; <= 0 means stop in last exon
	NumDownEJs   int   // Junctions 3' of the stop codon
	UTR3Length   int64 // Exonic bases from the stop codon to the 3' end, inclusive
	IsNMD        bool
	PTC          PTC
}

// PTC is the genomic position of the stop codon.
type PTC struct {
	Seqname  string
	Position int64
	Strand   geometry.Strand
}

// String formats the coordinate as seqname:position:strand.
func (p PTC) String() string {
	return p.Seqname + ":" + strconv.FormatInt(p.Position, 10) + ":" + p.Strand.String()
}

// PTCCoord returns the stop codon coordinate as seqname:position:strand.
func (r *Result) PTCCoord() string {
	return r.PTC.String()
}

// Classify computes the NMD prediction for one transcript. The stop codon is
// the base immediately 3' of the terminal CDS base. A transcript is NMD-sensitive
// when that base lies more than threshold spliced nucleotides upstream of the
// last exon-exon junction. Single-exon transcripts are never NMD-sensitive.
func Classify(id string, exons geometry.ExonSet, cds geometry.CDSSet, threshold int64) (*Result, error) {
	if cds.Empty() {
		return nil, fmt.Errorf("classify %s: %w", id, ErrNoCDS)
	}
	if exons.Len() == 0 {
		return nil, fmt.Errorf("classify %s: %w: empty exon set", id, geometry.ErrMalformedStructure)
	}
	if err := exons.ValidateCDS(cds); err != nil {
		return nil, fmt.Errorf("classify %s: %w", id, err)
	}

	terminal, err := cds.TerminalBase()
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", id, err)
	}
	terminalSpliced, err := geometry.ToSplicedCoordinate(terminal, exons)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", id, err)
	}

	length := exons.SplicedLength()
	stop := terminalSpliced + 1

	stopGenomic := terminal + int64(exons.Strand())
	if stop <= length {
		stopGenomic, err = geometry.FromSplicedCoordinate(stop, exons)
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", id, err)
		}
	}

	r := &Result{
		TranscriptID: id,
		UTR3Length:   length - stop + 1,
		PTC: PTC{
			Seqname:  exons.Seqname(),
			Position: stopGenomic,
			Strand:   exons.Strand(),
		},
	}

	junctions := geometry.Junctions(exons)
	if len(junctions) == 0 {
		// No junction to anchor on: report the distance to the 3' end.
		r.StopToLastEJ = length - stop
		return r, nil
	}

	r.StopToLastEJ = junctions[len(junctions)-1].Spliced - stop
	r.IsNMD = r.StopToLastEJ > threshold
	for _, j := range junctions {
		if j.Spliced > stop {
			r.NumDownEJs++
		}
	}
	return r, nil
}
