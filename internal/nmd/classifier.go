package nmd

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-nmd/internal/cache"
	"github.com/inodb/vibe-nmd/internal/geometry"
)

// Input is the geometry of one transcript ready for classification.
type Input struct {
	TranscriptID string
	Exons        geometry.ExonSet
	CDS          geometry.CDSSet
}

// InputFromTranscript builds validated exon and CDS sets from a cached transcript.
func InputFromTranscript(t *cache.Transcript) (Input, error) {
	exons, err := geometry.NewExonSet(t.ExonIntervals())
	if err != nil {
		return Input{}, fmt.Errorf("exons of %s: %w", t.ID, err)
	}
	cds, err := geometry.NewCDSSet(t.CDSIntervals())
	if err != nil {
		return Input{}, fmt.Errorf("CDS of %s: %w", t.ID, err)
	}
	return Input{TranscriptID: t.ID, Exons: exons, CDS: cds}, nil
}

// Classifier classifies transcripts with a fixed threshold.
type Classifier struct {
	threshold int64
	strict    bool
	workers   int
	logger    *zap.Logger
}

// NewClassifier creates a classifier using the given distance threshold.
func NewClassifier(threshold int64) *Classifier {
	return &Classifier{
		threshold: threshold,
		logger:    zap.NewNop(),
	}
}

// Threshold returns the distance threshold in nucleotides.
func (c *Classifier) Threshold() int64 {
	return c.threshold
}

// SetStrict configures batch runs to abort on the first failing transcript
// instead of logging and skipping it.
func (c *Classifier) SetStrict(strict bool) {
	c.strict = strict
}

// SetWorkers sets the batch worker count. Zero uses runtime.NumCPU().
func (c *Classifier) SetWorkers(n int) {
	c.workers = n
}

// SetLogger sets the logger for skipped transcripts and batch statistics.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Classify classifies one transcript.
func (c *Classifier) Classify(in Input) (*Result, error) {
	return Classify(in.TranscriptID, in.Exons, in.CDS, c.threshold)
}

// ClassifyTranscript converts a cached transcript and classifies it.
func (c *Classifier) ClassifyTranscript(t *cache.Transcript) (*Result, error) {
	in, err := InputFromTranscript(t)
	if err != nil {
		return nil, err
	}
	return c.Classify(in)
}

// ClassifyInputs classifies transcripts held directly as geometry. Rows are
// ordered by transcript ID. Transcripts without a CDS are skipped; other
// failures are skipped and logged unless the classifier is strict.
func (c *Classifier) ClassifyInputs(inputs map[string]Input) (*Table, error) {
	ids := make([]string, 0, len(inputs))
	for id := range inputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := NewTable()
	for _, id := range ids {
		in := inputs[id]
		if in.TranscriptID == "" {
			in.TranscriptID = id
		}
		if in.CDS.Empty() {
			continue
		}
		r, err := c.Classify(in)
		if err != nil {
			if c.strict {
				return nil, err
			}
			c.logger.Warn("skipping transcript", zap.String("transcript", id), zap.Error(err))
			continue
		}
		if err := table.Write(r); err != nil {
			return nil, err
		}
	}
	return table, nil
}
