package nmd

import "github.com/inodb/vibe-nmd/internal/cache"

// Filter selects transcripts for classification.
type Filter func(t *cache.Transcript) bool

// All matches transcripts accepted by every filter. Nil filters are ignored.
func All(filters ...Filter) Filter {
	return func(t *cache.Transcript) bool {
		for _, f := range filters {
			if f != nil && !f(t) {
				return false
			}
		}
		return true
	}
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return func(t *cache.Transcript) bool { return !f(t) }
}

// CodingOnly matches transcripts with a CDS.
func CodingOnly() Filter {
	return func(t *cache.Transcript) bool { return t.IsProteinCoding() }
}

// ByChrom matches transcripts on any of the given chromosomes.
func ByChrom(chroms ...string) Filter {
	set := toSet(chroms)
	return func(t *cache.Transcript) bool { return set[t.Chrom] }
}

// ByGene matches transcripts whose gene name or gene ID is listed.
func ByGene(genes ...string) Filter {
	set := toSet(genes)
	return func(t *cache.Transcript) bool { return set[t.GeneName] || set[t.GeneID] }
}

// ByTranscriptIDs matches the listed transcripts.
func ByTranscriptIDs(ids ...string) Filter {
	set := toSet(ids)
	return func(t *cache.Transcript) bool { return set[t.ID] }
}

// ByBiotype matches transcripts of the listed biotypes.
func ByBiotype(biotypes ...string) Filter {
	set := toSet(biotypes)
	return func(t *cache.Transcript) bool { return set[t.Biotype] }
}

// InRegion matches transcripts overlapping chrom:start-end. It scans every
// transcript; the CLI selects regions through Cache.FindTranscriptsInRegion
// instead, and this filter serves callers without a cache index.
func InRegion(chrom string, start, end int64) Filter {
	return func(t *cache.Transcript) bool {
		return t.Chrom == chrom && t.Overlaps(start, end)
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
