package nmd

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-nmd/internal/cache"
	"github.com/inodb/vibe-nmd/internal/geometry"
)

func loadSample(t *testing.T) []*cache.Transcript {
	t.Helper()
	c := cache.New()
	require.NoError(t, cache.NewGTFLoader("../../testdata/sample.gtf").Load(c))
	return c.Transcripts()
}

func ids(rows []*Result) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.TranscriptID
	}
	return out
}

func TestClassifyAll_SampleGTF(t *testing.T) {
	c := NewClassifier(DefaultThreshold)

	table, summary, err := c.Table(context.Background(), loadSample(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"transcript", "stop_to_lastEJ", "num_of_downEJs", "3'UTR_length", "is_NMD", "PTC_coord"}, table.Columns())
	assert.Equal(t, []string{"ENST00000000001", "ENST00000000002", "MSTRG.7.1", "MSTRG.9.2"}, ids(table.Rows()))

	assert.Equal(t, Summary{Total: 5, NonCoding: 1, Classified: 4, NMD: 1}, summary)

	tests := []struct {
		id       string
		stopToEJ int64
		downEJs  int
		utr3     int64
		isNMD    bool
		ptc      string
	}{
		{"ENST00000000001", -130, 0, 1158, false, "1:2129:+"},
		{"ENST00000000002", 597, 0, 598, false, "1:5403:+"},
		{"MSTRG.7.1", 364, 2, 644, true, "1:9365:-"},
		{"MSTRG.9.2", -22, 0, 180, false, "2:279:-"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r := table.Get(tt.id)
			require.NotNil(t, r)
			assert.Equal(t, tt.stopToEJ, r.StopToLastEJ)
			assert.Equal(t, tt.downEJs, r.NumDownEJs)
			assert.Equal(t, tt.utr3, r.UTR3Length)
			assert.Equal(t, tt.isNMD, r.IsNMD)
			assert.Equal(t, tt.ptc, r.PTCCoord())
		})
	}
}

func TestClassifyAll_OrderIndependentOfWorkers(t *testing.T) {
	transcripts := loadSample(t)

	var want []string
	for _, workers := range []int{1, 2, 8} {
		c := NewClassifier(DefaultThreshold)
		c.SetWorkers(workers)
		table, _, err := c.Table(context.Background(), transcripts, nil)
		require.NoError(t, err)
		if want == nil {
			want = ids(table.Rows())
			continue
		}
		assert.Equal(t, want, ids(table.Rows()), "workers=%d", workers)
	}
}

func TestClassifyAll_Filter(t *testing.T) {
	c := NewClassifier(DefaultThreshold)

	table, summary, err := c.Table(context.Background(), loadSample(t), ByGene("GENEB", "MSTRG.9"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MSTRG.7.1", "MSTRG.9.2"}, ids(table.Rows()))
	assert.Equal(t, 3, summary.Filtered)
	assert.Equal(t, 0, summary.NonCoding)
}

func TestClassifyAll_Threshold(t *testing.T) {
	c := NewClassifier(400)

	table, summary, err := c.Table(context.Background(), loadSample(t), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(400), c.Threshold())
	assert.False(t, table.Get("MSTRG.7.1").IsNMD)
	assert.Equal(t, 0, summary.NMD)
}

func malformed() *cache.Transcript {
	return &cache.Transcript{
		ID:     "BROKEN.1",
		Chrom:  "1",
		Start:  100,
		End:    400,
		Strand: geometry.Forward,
		Exons:  []cache.Exon{{Start: 100, End: 200}, {Start: 300, End: 400}},
		CDS:    []cache.Region{{Start: 150, End: 250}},
	}
}

func TestClassifyAll_SkipsFailures(t *testing.T) {
	transcripts := append(loadSample(t), malformed())
	c := NewClassifier(DefaultThreshold)

	table, summary, err := c.Table(context.Background(), transcripts, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, 1, summary.Failed)
	assert.Nil(t, table.Get("BROKEN.1"))
}

func TestClassifyAll_StrictAborts(t *testing.T) {
	transcripts := append([]*cache.Transcript{malformed()}, loadSample(t)...)
	c := NewClassifier(DefaultThreshold)
	c.SetStrict(true)

	_, _, err := c.Table(context.Background(), transcripts, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, geometry.ErrMalformedStructure)
	assert.Contains(t, err.Error(), "BROKEN.1")
}

func TestClassifyAll_StrictStopsSubmission(t *testing.T) {
	const valid = 20000
	transcripts := make([]*cache.Transcript, 0, valid+1)
	transcripts = append(transcripts, malformed())
	for i := range valid {
		transcripts = append(transcripts, makeTranscript(fmt.Sprintf("T%d", i), i%2 == 0))
	}

	c := NewClassifier(DefaultThreshold)
	c.SetStrict(true)
	c.SetWorkers(2)

	var offered atomic.Int64
	counting := func(*cache.Transcript) bool {
		offered.Add(1)
		return true
	}

	summary, err := c.ClassifyAll(context.Background(), transcripts, counting, NewTable())
	require.ErrorIs(t, err, geometry.ErrMalformedStructure)
	assert.Less(t, offered.Load(), int64(1000), "submission continued after the first failure")
	assert.Equal(t, int(offered.Load()), summary.Total)
	assert.Equal(t, 0, summary.Classified)
}

type stopAfter struct {
	*Table
	limit int
}

func (w *stopAfter) Write(r *Result) error {
	if w.Len() >= w.limit {
		return errors.New("disk full")
	}
	return w.Table.Write(r)
}

func TestClassifyAll_WriterErrorStopsSubmission(t *testing.T) {
	transcripts := make([]*cache.Transcript, 5000)
	for i := range transcripts {
		transcripts[i] = makeTranscript(fmt.Sprintf("T%d", i), false)
	}

	c := NewClassifier(DefaultThreshold)
	c.SetWorkers(2)

	summary, err := c.ClassifyAll(context.Background(), transcripts, nil, &stopAfter{Table: NewTable(), limit: 3})
	require.Error(t, err)
	assert.Less(t, summary.Total, 1000)
}

func TestClassifyAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewClassifier(DefaultThreshold).Table(ctx, loadSample(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingWriter struct{ *Table }

func (w failingWriter) Write(*Result) error { return errors.New("disk full") }

func TestClassifyAll_WriterError(t *testing.T) {
	_, err := NewClassifier(DefaultThreshold).ClassifyAll(context.Background(), loadSample(t), nil, failingWriter{NewTable()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestTable_DuplicateRow(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Write(&Result{TranscriptID: "T1"}))
	assert.Error(t, table.Write(&Result{TranscriptID: "T1"}))
	assert.Equal(t, 1, table.Len())
}
