// Package output provides result table formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-nmd/internal/nmd"
)

// TabWriter writes NMD predictions in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: nmd.Columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single prediction.
func (tw *TabWriter) Write(r *nmd.Result) error {
	values := []string{
		r.TranscriptID,
		strconv.FormatInt(r.StopToLastEJ, 10),
		strconv.Itoa(r.NumDownEJs),
		strconv.FormatInt(r.UTR3Length, 10),
		FormatBool(r.IsNMD),
		r.PTCCoord(),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatBool renders a flag as TRUE or FALSE.
func FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
