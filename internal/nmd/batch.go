package nmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-nmd/internal/cache"
)

// Columns is the column order of the result table.
var Columns = []string{
	"transcript",
	"stop_to_lastEJ",
	"num_of_downEJs",
	"3'UTR_length",
	"is_NMD",
	"PTC_coord",
}

// ResultWriter defines the interface for writing classification results.
type ResultWriter interface {
	WriteHeader() error
	Write(r *Result) error
	Flush() error
}

// Summary counts what happened to each transcript in a batch run.
type Summary struct {
	Total      int // Transcripts offered
	Filtered   int // Rejected by the filter
	NonCoding  int // Skipped for lacking a CDS
	Failed     int // Classification errors (skipped)
	Classified int // Rows written
	NMD        int // Rows predicted NMD-sensitive
}

// ClassifyAll classifies transcripts in parallel and writes one row per
// classified transcript, in input order. Transcripts rejected by filter or
// lacking a CDS are skipped. Per-transcript failures are logged and skipped
// unless the classifier is strict, in which case the first failure stops
// submission and only transcripts already in flight are drained. Cancelling
// ctx also stops submission of the remaining transcripts.
func (c *Classifier) ClassifyAll(ctx context.Context, transcripts []*cache.Transcript, filter Filter, writer ResultWriter) (Summary, error) {
	var summary Summary
	items := make(chan WorkItem, 2*max(c.workers, 1))

	// Stops submission once the caller cancels or collection fails.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	coding := CodingOnly()
	go func() {
		defer close(items)
		seq := 0
		for _, t := range transcripts {
			if ctx.Err() != nil {
				return
			}
			summary.Total++
			if filter != nil && !filter(t) {
				summary.Filtered++
				continue
			}
			if !coding(t) {
				summary.NonCoding++
				c.logger.Debug("skipping non-coding transcript", zap.String("transcript", t.ID))
				continue
			}
			select {
			case items <- WorkItem{Seq: seq, Transcript: t}:
				seq++
			case <-ctx.Done():
				return
			}
		}
	}()

	results := c.ParallelClassify(items, c.workers)

	collectErr := OrderedCollect(results, func(r WorkResult) error {
		err := c.collect(r, &summary, writer)
		if err != nil {
			cancel()
		}
		return err
	})
	if collectErr != nil {
		return summary, collectErr
	}

	// The deferred cancel has not run yet, so any error here is the caller's.
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	c.logger.Info("classified transcripts",
		zap.Int("total", summary.Total),
		zap.Int("filtered", summary.Filtered),
		zap.Int("non_coding", summary.NonCoding),
		zap.Int("failed", summary.Failed),
		zap.Int("classified", summary.Classified),
		zap.Int("nmd", summary.NMD))

	return summary, writer.Flush()
}

// collect records one classified transcript, writing it unless it failed.
// The returned error aborts the batch.
func (c *Classifier) collect(r WorkResult, summary *Summary, writer ResultWriter) error {
	if r.Err != nil {
		if c.strict {
			return fmt.Errorf("classify transcript %s: %w", r.Transcript.ID, r.Err)
		}
		summary.Failed++
		c.logger.Warn("failed to classify transcript",
			zap.String("transcript", r.Transcript.ID),
			zap.String("chrom", r.Transcript.Chrom),
			zap.Error(r.Err))
		return nil
	}
	summary.Classified++
	if r.Result.IsNMD {
		summary.NMD++
	}
	if err := writer.Write(r.Result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// Table is an in-memory result table keyed by transcript ID.
type Table struct {
	rows  []*Result
	index map[string]int
}

// NewTable creates an empty table. It implements ResultWriter.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Columns returns the table's column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), Columns...)
}

// Rows returns the rows in insertion order.
func (t *Table) Rows() []*Result {
	return t.rows
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Get returns the row for a transcript, or nil.
func (t *Table) Get(id string) *Result {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.rows[i]
}

// WriteHeader is a no-op; the header is given by Columns.
func (t *Table) WriteHeader() error { return nil }

// Write appends a row. A repeated transcript ID is an error.
func (t *Table) Write(r *Result) error {
	if _, ok := t.index[r.TranscriptID]; ok {
		return fmt.Errorf("duplicate transcript %s", r.TranscriptID)
	}
	t.index[r.TranscriptID] = len(t.rows)
	t.rows = append(t.rows, r)
	return nil
}

// Flush is a no-op.
func (t *Table) Flush() error { return nil }

// Table classifies transcripts and collects the results in memory.
func (c *Classifier) Table(ctx context.Context, transcripts []*cache.Transcript, filter Filter) (*Table, Summary, error) {
	table := NewTable()
	summary, err := c.ClassifyAll(ctx, transcripts, filter, table)
	if err != nil {
		return nil, summary, err
	}
	return table, summary, nil
}
