package cache

import (
	"sort"
	"sync"
)

// Cache holds transcripts indexed by chromosome and ID.
type Cache struct {
	// transcripts stores transcripts indexed by chromosome
	transcripts map[string][]*Transcript
	byID        map[string]*Transcript

	mu    sync.Mutex
	trees map[string]*IntervalTree
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		transcripts: make(map[string][]*Transcript),
		byID:        make(map[string]*Transcript),
	}
}

// AddTranscript adds a transcript to the cache. A transcript with an ID
// already present replaces the earlier one.
func (c *Cache) AddTranscript(t *Transcript) {
	if old, ok := c.byID[t.ID]; ok {
		c.remove(old)
	}
	c.transcripts[t.Chrom] = append(c.transcripts[t.Chrom], t)
	c.byID[t.ID] = t

	c.mu.Lock()
	c.trees = nil
	c.mu.Unlock()
}

func (c *Cache) remove(t *Transcript) {
	list := c.transcripts[t.Chrom]
	for i, x := range list {
		if x == t {
			c.transcripts[t.Chrom] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	delete(c.byID, t.ID)
}

// GetTranscript returns a specific transcript by ID, or nil if not found.
func (c *Cache) GetTranscript(id string) *Transcript {
	return c.byID[id]
}

// TranscriptCount returns the total number of transcripts in the cache.
func (c *Cache) TranscriptCount() int {
	return len(c.byID)
}

// Chromosomes returns a sorted list of chromosomes in the cache.
func (c *Cache) Chromosomes() []string {
	chroms := make([]string, 0, len(c.transcripts))
	for chrom, list := range c.transcripts {
		if len(list) > 0 {
			chroms = append(chroms, chrom)
		}
	}
	sort.Strings(chroms)
	return chroms
}

// FindTranscriptsByChrom returns all transcripts for a chromosome.
func (c *Cache) FindTranscriptsByChrom(chrom string) []*Transcript {
	return c.transcripts[chrom]
}

// Transcripts returns every transcript ordered by chromosome, start and ID.
func (c *Cache) Transcripts() []*Transcript {
	out := make([]*Transcript, 0, len(c.byID))
	for _, chrom := range c.Chromosomes() {
		list := append([]*Transcript(nil), c.transcripts[chrom]...)
		sort.Slice(list, func(i, j int) bool {
			if list[i].Start != list[j].Start {
				return list[i].Start < list[j].Start
			}
			return list[i].ID < list[j].ID
		})
		out = append(out, list...)
	}
	return out
}

// FindTranscripts returns all transcripts that overlap a given genomic position.
func (c *Cache) FindTranscripts(chrom string, pos int64) []*Transcript {
	return c.tree(chrom).FindOverlaps(pos)
}

// FindTranscriptsInRegion returns all transcripts overlapping [start, end].
func (c *Cache) FindTranscriptsInRegion(chrom string, start, end int64) []*Transcript {
	return c.tree(chrom).FindRange(start, end)
}

// tree returns the interval tree for chrom, building the index on first use.
func (c *Cache) tree(chrom string) *IntervalTree {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.trees == nil {
		c.trees = make(map[string]*IntervalTree)
	}
	t, ok := c.trees[chrom]
	if !ok {
		t = BuildIntervalTree(c.transcripts[chrom])
		c.trees[chrom] = t
	}
	return t
}
