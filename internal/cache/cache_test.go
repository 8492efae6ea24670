package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-nmd/internal/geometry"
)

func TestCache_AddAndLookup(t *testing.T) {
	c := New()
	c.AddTranscript(&Transcript{ID: "T2", Chrom: "1", Start: 500, End: 900})
	c.AddTranscript(&Transcript{ID: "T1", Chrom: "1", Start: 100, End: 600})
	c.AddTranscript(&Transcript{ID: "T3", Chrom: "X", Start: 100, End: 200})

	assert.Equal(t, 3, c.TranscriptCount())
	assert.Equal(t, []string{"1", "X"}, c.Chromosomes())
	assert.Nil(t, c.GetTranscript("missing"))

	var order []string
	for _, tr := range c.Transcripts() {
		order = append(order, tr.ID)
	}
	assert.Equal(t, []string{"T1", "T2", "T3"}, order)

	assert.Equal(t, map[string]bool{"T1": true, "T2": true}, ids(c.FindTranscripts("1", 550)))
	assert.Equal(t, map[string]bool{"T2": true}, ids(c.FindTranscriptsInRegion("1", 700, 1000)))
	assert.Empty(t, c.FindTranscripts("2", 550))
}

func TestCache_ReplaceInvalidatesIndex(t *testing.T) {
	c := New()
	c.AddTranscript(&Transcript{ID: "T1", Chrom: "1", Start: 100, End: 200})
	require.Len(t, c.FindTranscripts("1", 150), 1)

	c.AddTranscript(&Transcript{ID: "T1", Chrom: "1", Start: 1000, End: 2000})
	assert.Equal(t, 1, c.TranscriptCount())
	assert.Empty(t, c.FindTranscripts("1", 150))
	assert.Len(t, c.FindTranscripts("1", 1500), 1)
}

func TestTranscript_Intervals(t *testing.T) {
	tr := &Transcript{
		ID:     "T1",
		Chrom:  "7",
		Strand: geometry.Reverse,
		Exons:  []Exon{{Number: 2, Start: 100, End: 200}, {Number: 1, Start: 300, End: 400}},
		CDS:    []Region{{Start: 150, End: 200}, {Start: 300, End: 350}},
	}

	exons := tr.ExonIntervals()
	require.Len(t, exons, 2)
	assert.Equal(t, geometry.Interval{Seqname: "7", Start: 100, End: 200, Strand: geometry.Reverse}, exons[0])

	cds := tr.CDSIntervals()
	require.Len(t, cds, 2)
	assert.Equal(t, int64(350), cds[1].End)

	assert.True(t, tr.IsProteinCoding())
	assert.True(t, tr.IsReverseStrand())
	assert.False(t, tr.IsForwardStrand())
}
