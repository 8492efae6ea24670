package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-nmd/internal/geometry"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{
			name:  "basic attributes",
			input: `gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS";`,
			expected: map[string]string{
				"gene_id":       "ENSG00000133703",
				"transcript_id": "ENST00000311936",
				"gene_name":     "KRAS",
			},
		},
		{
			name:  "with tags",
			input: `gene_id "ENSG00000133703"; tag "Ensembl_canonical"; tag "MANE_Select";`,
			expected: map[string]string{
				"gene_id": "ENSG00000133703",
				"tag":     "MANE_Select", // Last value wins
			},
		},
		{
			name:  "stringtie attributes",
			input: `gene_id "MSTRG.1"; transcript_id "MSTRG.1.1"; cov "12.5";`,
			expected: map[string]string{
				"transcript_id": "MSTRG.1.1",
				"cov":           "12.5",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseAttributes(tt.input)
			for key, want := range tt.expected {
				assert.Equal(t, want, result[key], "parseAttributes()[%q]", key)
			}
		})
	}
}

func TestStripVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ENST00000311936.8", "ENST00000311936"},
		{"ENSG00000133703.14", "ENSG00000133703"},
		{"ENST00000311936", "ENST00000311936"},
		{"MSTRG.12.3", "MSTRG.12.3"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripVersion(tt.input), "stripVersion(%q)", tt.input)
	}
}

func TestMergeRegions(t *testing.T) {
	got := mergeRegions([]Region{
		{Start: 2126, End: 2128},
		{Start: 1050, End: 1199},
		{Start: 2000, End: 2125},
		{Start: 1500, End: 1699},
	})
	assert.Equal(t, []Region{{1050, 1199}, {1500, 1699}, {2000, 2128}}, got)

	assert.Nil(t, mergeRegions(nil))
}

func TestGTFLoader_ParseGTF(t *testing.T) {
	gtfContent := `##description: Test GTF
chr12	HAVANA	gene	25205246	25250929	.	-	.	gene_id "ENSG00000133703"; gene_type "protein_coding"; gene_name "KRAS";
chr12	HAVANA	transcript	25205246	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_type "protein_coding"; gene_name "KRAS"; transcript_type "protein_coding"; tag "Ensembl_canonical";
chr12	HAVANA	exon	25250751	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; exon_number "1";
chr12	HAVANA	exon	25245274	25245395	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; exon_number "2";
chr12	HAVANA	CDS	25250751	25250808	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; exon_number "1";
chr12	HAVANA	CDS	25245277	25245395	.	-	2	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; exon_number "2";
chr12	HAVANA	start_codon	25250806	25250808	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS";
chr12	HAVANA	stop_codon	25245274	25245276	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS";
`

	loader := NewGTFLoader("")
	transcripts, err := loader.parseGTF(strings.NewReader(gtfContent), "")
	require.NoError(t, err)

	require.Len(t, transcripts, 1)

	tr := transcripts["ENST00000311936"]
	require.NotNil(t, tr, "parseGTF() did not return ENST00000311936")

	assert.Equal(t, "KRAS", tr.GeneName)
	assert.Equal(t, "12", tr.Chrom)
	assert.Equal(t, geometry.Reverse, tr.Strand)
	assert.Equal(t, "protein_coding", tr.Biotype)

	require.Len(t, tr.Exons, 2)
	assert.Equal(t, 2, tr.Exons[0].Number, "lower exon is exon 2 on the reverse strand")

	// stop_codon merged into the adjacent CDS piece
	assert.Equal(t, []Region{{25245274, 25245395}, {25250751, 25250808}}, tr.CDS)
	assert.Equal(t, int64(25245274), tr.CDSStart())
	assert.Equal(t, int64(25250808), tr.CDSEnd())
}

func TestGTFLoader_SynthesizesTranscripts(t *testing.T) {
	gtfContent := `chr3	StringTie	exon	500	700	.	+	.	gene_id "MSTRG.2"; transcript_id "MSTRG.2.1";
chr3	StringTie	exon	100	300	.	+	.	gene_id "MSTRG.2"; transcript_id "MSTRG.2.1";
chr3	StringTie	exon	800	900	.	+	.	gene_id "MSTRG.2"; transcript_id "MSTRG.2.1"
short line
`
	loader := NewGTFLoader("")
	transcripts, err := loader.parseGTF(strings.NewReader(gtfContent), "")
	require.NoError(t, err)

	tr := transcripts["MSTRG.2.1"]
	require.NotNil(t, tr)
	assert.Equal(t, "MSTRG.2", tr.GeneID)
	assert.Equal(t, int64(100), tr.Start)
	assert.Equal(t, int64(900), tr.End)
	assert.Equal(t, geometry.Forward, tr.Strand)
	assert.False(t, tr.IsProteinCoding())
	require.Len(t, tr.Exons, 3)
	assert.Equal(t, 1, tr.Exons[0].Number)
}

func TestGTFLoader_LoadFile(t *testing.T) {
	loader := NewGTFLoader("../../testdata/sample.gtf")
	c := New()

	require.NoError(t, loader.Load(c))
	assert.Equal(t, 5, c.TranscriptCount())

	tr := c.GetTranscript("ENST00000000001")
	require.NotNil(t, tr, "GetTranscript(ENST00000000001) returned nil")
	assert.Equal(t, "GENEA", tr.GeneName)
	assert.Equal(t, "ENSG00000000001", tr.GeneID)
	assert.Len(t, tr.Exons, 3)
	assert.Equal(t, []Region{{1050, 1199}, {1500, 1699}, {2000, 2128}}, tr.CDS)

	st := c.GetTranscript("MSTRG.9.2")
	require.NotNil(t, st, "exon-only transcript should be synthesized")
	assert.Equal(t, "2", st.Chrom)
	assert.Equal(t, []Region{{280, 300}, {650, 700}}, st.CDS)

	lnc := c.GetTranscript("MSTRG.10.1")
	require.NotNil(t, lnc)
	assert.False(t, lnc.IsProteinCoding())
	assert.Equal(t, "lncRNA", lnc.Biotype)
}

func TestGTFLoader_KeepChromPrefix(t *testing.T) {
	loader := NewGTFLoader("../../testdata/sample.gtf")
	loader.SetKeepChromPrefix(true)
	c := New()

	require.NoError(t, loader.Load(c))
	assert.Equal(t, []string{"chr1", "chr2"}, c.Chromosomes())
}

func TestGTFLoader_FilterChromosome(t *testing.T) {
	loader := NewGTFLoader("../../testdata/sample.gtf")
	c := New()

	require.NoError(t, loader.LoadChromosome(c, "chr2"))
	assert.Equal(t, []string{"2"}, c.Chromosomes())
	assert.Equal(t, 2, c.TranscriptCount())
}

func TestGTFLoader_MissingFile(t *testing.T) {
	err := NewGTFLoader("does-not-exist.gtf").Load(New())
	assert.Error(t, err)
}
