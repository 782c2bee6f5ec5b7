// Package telemetry streams one CSV line per control tick, typically to a
// serial port for plotting on a host machine.
package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// Header is the first line written to every stream.
var Header = []string{"timestamp", "phase", "elapsed", "duration", "target_c", "temp_c", "valid", "relay"}

// Writer formats controller status as CSV records.
// Not safe for concurrent use; runLoop is the only caller.
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

// NewWriter creates a Writer on w. The header is written with the first record.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Record writes one line for st and flushes it.
func (w *Writer) Record(ts time.Time, st logic.Status) error {
	if !w.wroteHeader {
		if err := w.csv.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.wroteHeader = true
	}

	temp := ""
	if st.LastSample.Valid {
		temp = strconv.FormatFloat(st.LastSample.ValueC, 'f', 2, 64)
	}
	relay := "0"
	if st.RelayOn {
		relay = "1"
	}

	rec := []string{
		ts.UTC().Format(time.RFC3339),
		string(st.Phase),
		strconv.Itoa(st.Elapsed),
		strconv.Itoa(st.Duration),
		strconv.FormatFloat(st.TargetC, 'f', 2, 64),
		temp,
		strconv.FormatBool(st.LastSample.Valid),
		relay,
	}
	if err := w.csv.Write(rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.csv.Flush()
	return w.csv.Error()
}
