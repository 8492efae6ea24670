package nmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/vibe-nmd/internal/cache"
)

func TestFilters(t *testing.T) {
	coding := &cache.Transcript{ID: "ENST1", GeneID: "ENSG1", GeneName: "KRAS", Chrom: "12", Start: 100, End: 500, Biotype: "protein_coding", CDS: []cache.Region{{Start: 150, End: 300}}}
	lnc := &cache.Transcript{ID: "MSTRG.1.1", GeneID: "MSTRG.1", Chrom: "1", Start: 1000, End: 2000, Biotype: "lncRNA"}

	tests := []struct {
		name   string
		filter Filter
		want   []bool // coding, lnc
	}{
		{"coding only", CodingOnly(), []bool{true, false}},
		{"by chrom", ByChrom("1", "2"), []bool{false, true}},
		{"by gene name", ByGene("KRAS"), []bool{true, false}},
		{"by gene id", ByGene("MSTRG.1"), []bool{false, true}},
		{"by transcript", ByTranscriptIDs("MSTRG.1.1"), []bool{false, true}},
		{"by biotype", ByBiotype("protein_coding", "nonsense_mediated_decay"), []bool{true, false}},
		{"region overlap", InRegion("12", 450, 600), []bool{true, false}},
		{"region wrong chrom", InRegion("1", 450, 600), []bool{false, false}},
		{"region edge", InRegion("1", 2000, 2000), []bool{false, true}},
		{"all", All(ByChrom("12"), CodingOnly()), []bool{true, false}},
		{"all ignores nil", All(nil, ByChrom("1")), []bool{false, true}},
		{"empty all", All(), []bool{true, true}},
		{"not", Not(CodingOnly()), []bool{false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want[0], tt.filter(coding), "coding")
			assert.Equal(t, tt.want[1], tt.filter(lnc), "lnc")
		})
	}
}
