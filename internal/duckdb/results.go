package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-nmd/internal/geometry"
	"github.com/inodb/vibe-nmd/internal/nmd"
)

// ResultRow is one stored prediction with the gene context of its transcript.
type ResultRow struct {
	Result    *nmd.Result
	GeneID    string
	GeneName  string
	Chrom     string
	Threshold int64
}

// resultKey is the composite key for deduplicating results before writing.
type resultKey struct {
	transcriptID string
	threshold    int64
}

const resultColumns = `transcript_id, threshold, gene_id, gene_name, chrom,
		stop_to_last_ej, num_down_ejs, utr3_length, is_nmd,
		ptc_seqname, ptc_position, ptc_strand`

// WriteResults batch-inserts results into DuckDB using the Appender API.
// Rows sharing a (transcript_id, threshold) key are deduplicated, last wins,
// and replace rows already stored under that key. The write is atomic: on
// error the stored rows are left unchanged.
func (s *Store) WriteResults(rows []ResultRow) error {
	if len(rows) == 0 {
		return nil
	}

	index := make(map[resultKey]int, len(rows))
	deduped := make([]ResultRow, 0, len(rows))
	for _, r := range rows {
		k := resultKey{r.Result.TranscriptID, r.Threshold}
		if i, ok := index[k]; ok {
			deduped[i] = r
			continue
		}
		index[k] = len(deduped)
		deduped = append(deduped, r)
	}

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	// Rows are appended to the staging table and moved over in one
	// transaction, so stored rows survive a failed write.
	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(ctx, "ROLLBACK") //nolint:errcheck
		}
	}()

	if _, err := conn.ExecContext(ctx, "DELETE FROM "+stagingTable); err != nil {
		return fmt.Errorf("clear staging table: %w", err)
	}
	if err := appendResults(conn, deduped); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "INSERT OR REPLACE INTO nmd_results SELECT "+resultColumns+" FROM "+stagingTable); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM "+stagingTable); err != nil {
		return fmt.Errorf("clear staging table: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	committed = true
	return nil
}

// appendResults writes rows to the staging table through the Appender API.
func appendResults(conn *sql.Conn, rows []ResultRow) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", stagingTable)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, r := range rows {
		res := r.Result
		if err := appender.AppendRow(
			res.TranscriptID, r.Threshold, r.GeneID, r.GeneName, r.Chrom,
			res.StopToLastEJ, int64(res.NumDownEJs), res.UTR3Length, res.IsNMD,
			res.PTC.Seqname, res.PTC.Position, res.PTC.Strand.String(),
		); err != nil {
			appender.Close()
			return fmt.Errorf("append result: %w", err)
		}
	}

	// Close flushes the remaining rows.
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

// ClearResults removes all stored results.
func (s *Store) ClearResults() error {
	_, err := s.db.Exec("DELETE FROM nmd_results")
	return err
}

// CountResults returns the number of stored results.
func (s *Store) CountResults() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM nmd_results").Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// LookupTranscript returns the stored result for a transcript at a threshold,
// or nil if none is stored.
func (s *Store) LookupTranscript(transcriptID string, threshold int64) (*ResultRow, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM nmd_results
		WHERE transcript_id=? AND threshold=?`, transcriptID, threshold)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// SearchByGene returns stored results whose gene name or gene ID matches,
// ordered by threshold then transcript ID.
func (s *Store) SearchByGene(gene string) ([]ResultRow, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM nmd_results
		WHERE gene_name=? OR gene_id=?
		ORDER BY threshold, transcript_id`, gene, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// SearchNMD returns the transcripts predicted NMD-sensitive at a threshold,
// ordered by transcript ID.
func (s *Store) SearchNMD(threshold int64) ([]ResultRow, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM nmd_results
		WHERE threshold=? AND is_nmd
		ORDER BY transcript_id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query NMD targets: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// scanResults scans rows into ResultRow slices.
func scanResults(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]ResultRow, error) {
	var results []ResultRow
	for rows.Next() {
		var r ResultRow
		var res nmd.Result
		var downEJs int64
		var strand string

		if err := rows.Scan(
			&res.TranscriptID, &r.Threshold, &r.GeneID, &r.GeneName, &r.Chrom,
			&res.StopToLastEJ, &downEJs, &res.UTR3Length, &res.IsNMD,
			&res.PTC.Seqname, &res.PTC.Position, &strand,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		res.NumDownEJs = int(downEJs)
		res.PTC.Strand = geometry.ParseStrand(strand)
		r.Result = &res
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
