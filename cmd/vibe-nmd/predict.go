package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-nmd/internal/cache"
	"github.com/inodb/vibe-nmd/internal/duckdb"
	"github.com/inodb/vibe-nmd/internal/nmd"
	"github.com/inodb/vibe-nmd/internal/output"
)

type predictOptions struct {
	outputFile    string
	chroms        []string
	genes         []string
	transcripts   []string
	biotypes      []string
	skipBiotypes  []string
	region        string
	strict        bool
	dbPath        string
	noCache       bool
	keepChrPrefix bool
}

func newPredictCmd() *cobra.Command {
	var opts predictOptions

	cmd := &cobra.Command{
		Use:   "predict [flags] <gtf>",
		Short: "Predict NMD sensitivity of transcripts in a GTF file",
		Long: `Predict NMD sensitivity for every coding transcript in a GTF file.

The GTF must carry exon and CDS features (stop_codon features are merged
into the CDS). Non-coding transcripts are skipped. Results are written as a
tab-delimited table with one row per coding transcript.`,
		Example: `  vibe-nmd predict transcripts.gtf
  vibe-nmd predict --threshold 55 -o nmd.tsv transcripts.gtf.gz
  vibe-nmd predict --gene KRAS --region chr12:25200000-25260000 gencode.gtf
  vibe-nmd predict --db nmd.duckdb assembled.gtf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.Int64("threshold", nmd.DefaultThreshold, "Stop-codon to last-junction distance (nt) above which a transcript is NMD-sensitive")
	f.Int("workers", 0, "Number of classification workers (0 = all CPUs)")
	f.StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	f.StringSliceVar(&opts.chroms, "chrom", nil, "Only classify transcripts on these chromosomes")
	f.StringSliceVar(&opts.genes, "gene", nil, "Only classify transcripts of these genes (name or ID)")
	f.StringSliceVar(&opts.transcripts, "transcript", nil, "Only classify these transcript IDs")
	f.StringSliceVar(&opts.biotypes, "biotype", nil, "Only classify transcripts of these biotypes")
	f.StringSliceVar(&opts.skipBiotypes, "exclude-biotype", nil, "Skip transcripts of these biotypes")
	f.StringVar(&opts.region, "region", "", "Only classify transcripts overlapping chrom:start-end")
	f.BoolVar(&opts.strict, "strict", false, "Abort on the first malformed transcript instead of skipping it")
	f.StringVar(&opts.dbPath, "db", "", "DuckDB database to store results in")
	f.BoolVar(&opts.noCache, "no-cache", false, "Parse the GTF even if a transcript cache exists")
	f.BoolVar(&opts.keepChrPrefix, "keep-chr-prefix", false, "Keep the chr prefix on chromosome names")

	_ = viper.BindPFlag("nmd.threshold", f.Lookup("threshold"))
	_ = viper.BindPFlag("predict.workers", f.Lookup("workers"))

	return cmd
}

func runPredict(ctx context.Context, gtfPath string, opts predictOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	var region *genomicRegion
	if opts.region != "" {
		r, err := parseRegion(opts.region, opts.keepChrPrefix)
		if err != nil {
			return usageError{err}
		}
		region = &r
	}

	c, err := loadTranscripts(gtfPath, opts.noCache, opts.keepChrPrefix, logger)
	if err != nil {
		return err
	}

	transcripts := c.Transcripts()
	if region != nil {
		transcripts = regionTranscripts(c, *region)
	}
	filter := buildFilter(opts)

	var out io.Writer = os.Stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	threshold := viper.GetInt64("nmd.threshold")
	classifier := nmd.NewClassifier(threshold)
	classifier.SetStrict(opts.strict)
	classifier.SetWorkers(viper.GetInt("predict.workers"))
	classifier.SetLogger(logger)

	tab := output.NewTabWriter(out)
	if err := tab.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var writer nmd.ResultWriter = tab
	var collector *rowCollector
	if opts.dbPath != "" {
		collector = &rowCollector{ResultWriter: tab, cache: c, threshold: threshold}
		writer = collector
	}

	summary, err := classifier.ClassifyAll(ctx, transcripts, filter, writer)
	if err != nil {
		return err
	}

	if collector != nil {
		if err := storeResults(opts.dbPath, collector.rows, logger); err != nil {
			return err
		}
	}

	logger.Debug("prediction finished",
		zap.String("gtf", gtfPath),
		zap.Int64("threshold", threshold),
		zap.Int("nmd", summary.NMD),
		zap.Int("classified", summary.Classified))
	return nil
}

// loadTranscripts loads the GTF, going through the gob transcript cache
// unless noCache is set.
func loadTranscripts(gtfPath string, noCache, keepChrPrefix bool, logger *zap.Logger) (*cache.Cache, error) {
	fp, err := duckdb.StatFile(gtfPath)
	if err != nil {
		return nil, fmt.Errorf("stat GTF: %w", err)
	}

	c := cache.New()
	tc := duckdb.NewTranscriptCache(viper.GetString("cache.dir"), cacheName(gtfPath, keepChrPrefix))

	if !noCache && tc.Valid(fp) {
		err := tc.Load(c)
		if err == nil {
			logger.Info("loaded transcript cache",
				zap.String("gtf", gtfPath),
				zap.Int("transcripts", c.TranscriptCount()))
			return c, nil
		}
		logger.Warn("transcript cache unreadable, parsing GTF", zap.Error(err))
		c = cache.New()
	}

	loader := cache.NewGTFLoader(gtfPath)
	loader.SetKeepChromPrefix(keepChrPrefix)
	loader.SetLogger(logger)
	if err := loader.Load(c); err != nil {
		return nil, fmt.Errorf("load GTF: %w", err)
	}
	logger.Info("loaded GTF",
		zap.String("gtf", gtfPath),
		zap.Int("transcripts", c.TranscriptCount()),
		zap.Int("chromosomes", len(c.Chromosomes())))

	if !noCache {
		if err := tc.Write(c, fp); err != nil {
			logger.Warn("could not write transcript cache", zap.Error(err))
		}
	}
	return c, nil
}

// cacheName derives the cache file stem from the GTF path. Absolute paths
// keep caches of same-named files in different directories apart.
func cacheName(gtfPath string, keepChrPrefix bool) string {
	abs, err := filepath.Abs(gtfPath)
	if err != nil {
		abs = gtfPath
	}
	name := strings.NewReplacer(string(filepath.Separator), "_", ":", "_").Replace(strings.TrimPrefix(abs, string(filepath.Separator)))
	if keepChrPrefix {
		name += ".chr"
	}
	return name
}

func buildFilter(opts predictOptions) nmd.Filter {
	var filters []nmd.Filter
	if len(opts.chroms) > 0 {
		chroms := make([]string, len(opts.chroms))
		for i, chrom := range opts.chroms {
			chroms[i] = chromName(chrom, opts.keepChrPrefix)
		}
		filters = append(filters, nmd.ByChrom(chroms...))
	}
	if len(opts.genes) > 0 {
		filters = append(filters, nmd.ByGene(opts.genes...))
	}
	if len(opts.transcripts) > 0 {
		filters = append(filters, nmd.ByTranscriptIDs(opts.transcripts...))
	}
	if len(opts.biotypes) > 0 {
		filters = append(filters, nmd.ByBiotype(opts.biotypes...))
	}
	if len(opts.skipBiotypes) > 0 {
		filters = append(filters, nmd.Not(nmd.ByBiotype(opts.skipBiotypes...)))
	}
	if len(filters) == 0 {
		return nil
	}
	return nmd.All(filters...)
}

// genomicRegion is a parsed chrom:start-end argument.
type genomicRegion struct {
	Chrom string
	Start int64
	End   int64
}

// parseRegion parses chrom:start-end (1-based, inclusive). A bare chromosome
// name selects the whole chromosome.
func parseRegion(s string, keepChrPrefix bool) (genomicRegion, error) {
	chrom, span, hasSpan := strings.Cut(s, ":")
	if chrom == "" {
		return genomicRegion{}, fmt.Errorf("invalid region %q: missing chromosome", s)
	}
	r := genomicRegion{Chrom: chromName(chrom, keepChrPrefix), Start: 1, End: 1<<62 - 1}
	if !hasSpan {
		return r, nil
	}

	startStr, endStr, ok := strings.Cut(strings.ReplaceAll(span, ",", ""), "-")
	if !ok {
		return genomicRegion{}, fmt.Errorf("invalid region %q: expected chrom:start-end", s)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return genomicRegion{}, fmt.Errorf("invalid region start %q: %w", startStr, err)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return genomicRegion{}, fmt.Errorf("invalid region end %q: %w", endStr, err)
	}
	if start < 1 || end < start {
		return genomicRegion{}, fmt.Errorf("invalid region %q: need 1 <= start <= end", s)
	}
	r.Start, r.End = start, end
	return r, nil
}

// regionTranscripts returns the transcripts overlapping r from the interval
// index, ordered by start then ID as in Cache.Transcripts.
func regionTranscripts(c *cache.Cache, r genomicRegion) []*cache.Transcript {
	return c.FindTranscriptsInRegion(r.Chrom, r.Start, r.End)
}

func chromName(chrom string, keepChrPrefix bool) string {
	if keepChrPrefix {
		return chrom
	}
	return strings.TrimPrefix(chrom, "chr")
}

// rowCollector forwards results to the table writer and keeps them, with
// gene context, for the result store.
type rowCollector struct {
	nmd.ResultWriter
	cache     *cache.Cache
	threshold int64
	rows      []duckdb.ResultRow
}

func (rc *rowCollector) Write(r *nmd.Result) error {
	row := duckdb.ResultRow{Result: r, Threshold: rc.threshold, Chrom: r.PTC.Seqname}
	if t := rc.cache.GetTranscript(r.TranscriptID); t != nil {
		row.GeneID = t.GeneID
		row.GeneName = t.GeneName
		row.Chrom = t.Chrom
	}
	rc.rows = append(rc.rows, row)
	return rc.ResultWriter.Write(r)
}

func storeResults(path string, rows []duckdb.ResultRow, logger *zap.Logger) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	if err := store.WriteResults(rows); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	logger.Info("stored results", zap.String("db", path), zap.Int("rows", len(rows)))
	return nil
}
