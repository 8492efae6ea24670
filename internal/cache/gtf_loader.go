package cache

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-nmd/internal/geometry"
)

// GTFLoader loads transcript structures from GTF files (GENCODE, Ensembl or
// assembler output such as StringTie).
type GTFLoader struct {
	path            string
	keepChromPrefix bool
	logger          *zap.Logger
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path, logger: zap.NewNop()}
}

// SetKeepChromPrefix disables stripping of the "chr" prefix from chromosome names.
func (l *GTFLoader) SetKeepChromPrefix(keep bool) {
	l.keepChromPrefix = keep
}

// SetLogger sets the logger for load statistics.
func (l *GTFLoader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load loads all transcripts from the GTF file into the cache.
func (l *GTFLoader) Load(c *Cache) error {
	return l.loadGTF(c, "")
}

// LoadChromosome loads transcripts for a specific chromosome.
func (l *GTFLoader) LoadChromosome(c *Cache, chrom string) error {
	return l.loadGTF(c, chrom)
}

// loadGTF parses the GTF file and populates the cache.
// If filterChrom is non-empty, only loads that chromosome.
func (l *GTFLoader) loadGTF(c *Cache, filterChrom string) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	// Handle gzipped files
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	transcripts, err := l.parseGTF(reader, filterChrom)
	if err != nil {
		return err
	}

	for _, t := range transcripts {
		c.AddTranscript(t)
	}

	l.logger.Info("loaded GTF",
		zap.String("path", l.path),
		zap.Int("transcripts", len(transcripts)))

	return nil
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	source      string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// parseGTF parses GTF content and returns transcripts keyed by ID.
func (l *GTFLoader) parseGTF(reader io.Reader, filterChrom string) (map[string]*Transcript, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	if filterChrom != "" {
		filterChrom = l.chromName(filterChrom)
	}

	transcripts := make(map[string]*Transcript)
	firstSeen := make(map[string]*gtfFeature)
	exonsByTranscript := make(map[string][]Exon)
	cdsByTranscript := make(map[string][]Region)

	lineNum := 0
	skipped := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := l.parseLine(line)
		if err != nil {
			skipped++
			l.logger.Debug("skipping malformed GTF line",
				zap.Int("line", lineNum),
				zap.Error(err))
			continue
		}

		if filterChrom != "" && feat.chrom != filterChrom {
			continue
		}

		transcriptID := feat.attributes["transcript_id"]
		if transcriptID == "" {
			continue
		}
		transcriptID = stripVersion(transcriptID)

		if _, ok := firstSeen[transcriptID]; !ok {
			firstSeen[transcriptID] = feat
		}

		switch feat.featureType {
		case "transcript":
			transcripts[transcriptID] = newTranscript(transcriptID, feat)

		case "exon":
			exonNum, _ := strconv.Atoi(feat.attributes["exon_number"])
			exonsByTranscript[transcriptID] = append(exonsByTranscript[transcriptID], Exon{
				Number: exonNum,
				Start:  feat.start,
				End:    feat.end,
			})

		case "CDS", "stop_codon":
			// The CDS set runs through the stop codon, which GENCODE reports
			// separately from its CDS features.
			cdsByTranscript[transcriptID] = append(cdsByTranscript[transcriptID], Region{Start: feat.start, End: feat.end})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	if skipped > 0 {
		l.logger.Warn("skipped malformed GTF lines", zap.Int("count", skipped))
	}

	// Assemble transcripts with exons and CDS info
	result := make(map[string]*Transcript, len(exonsByTranscript))
	for id, exons := range exonsByTranscript {
		t, ok := transcripts[id]
		if !ok {
			// Assemblers often emit exon lines only.
			t = newTranscript(id, firstSeen[id])
			t.Start, t.End = 0, 0
		}

		sort.Slice(exons, func(i, j int) bool {
			return exons[i].Start < exons[j].Start
		})
		numberExons(exons, t.Strand)
		t.Exons = exons

		if t.Start == 0 || exons[0].Start < t.Start {
			t.Start = exons[0].Start
		}
		if last := exons[len(exons)-1].End; last > t.End {
			t.End = last
		}

		t.CDS = mergeRegions(cdsByTranscript[id])
		result[id] = t
	}

	return result, nil
}

// newTranscript builds a transcript shell from a GTF feature's columns and attributes.
func newTranscript(id string, feat *gtfFeature) *Transcript {
	return &Transcript{
		ID:       id,
		GeneID:   stripVersion(feat.attributes["gene_id"]),
		GeneName: feat.attributes["gene_name"],
		Chrom:    feat.chrom,
		Start:    feat.start,
		End:      feat.end,
		Strand:   geometry.ParseStrand(feat.strand),
		Biotype:  transcriptBiotype(feat.attributes),
	}
}

// transcriptBiotype reads the biotype attribute under its GENCODE or Ensembl name.
func transcriptBiotype(attrs map[string]string) string {
	if v := attrs["transcript_type"]; v != "" {
		return v
	}
	return attrs["transcript_biotype"]
}

// numberExons fills in missing exon numbers in transcriptional order.
func numberExons(exons []Exon, strand geometry.Strand) {
	numbered := true
	for _, e := range exons {
		if e.Number == 0 {
			numbered = false
			break
		}
	}
	if numbered {
		return
	}

	n := len(exons)
	for i := range exons {
		if strand == geometry.Reverse {
			exons[i].Number = n - i
		} else {
			exons[i].Number = i + 1
		}
	}
}

// mergeRegions sorts regions and merges overlapping or adjacent ones.
func mergeRegions(regions []Region) []Region {
	if len(regions) == 0 {
		return nil
	}
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Start < regions[j].Start
	})

	merged := []Region{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// parseLine parses a single GTF line.
func (l *GTFLoader) parseLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	feat := &gtfFeature{
		chrom:       l.chromName(fields[0]),
		source:      fields[1],
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}

	return feat, nil
}

func (l *GTFLoader) chromName(chrom string) string {
	if l.keepChromPrefix {
		return chrom
	}
	return normalizeChrom(chrom)
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	// Split by semicolon
	parts := strings.Split(attrStr, ";")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Find the first space to separate key from value
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.TrimSpace(part[idx+1:])

		// Remove quotes
		value = strings.Trim(value, "\"")

		attrs[key] = value
	}

	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENST00000456328.2" -> "ENST00000456328"
// Other IDs are returned unchanged since assemblers use dots inside IDs
// (e.g., "MSTRG.12.3").
func stripVersion(id string) string {
	if !strings.HasPrefix(id, "ENS") {
		return id
	}
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// normalizeChrom normalizes chromosome names by removing "chr" prefix.
func normalizeChrom(chrom string) string {
	if strings.HasPrefix(chrom, "chr") {
		return chrom[3:]
	}
	return chrom
}
