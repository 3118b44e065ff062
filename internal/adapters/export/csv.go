package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

var journalHeader = []string{
	"index",
	"date",
	"instrument",
	"direction",
	"entry_price",
	"exit_price",
	"points",
	"pnl",
	"cum_pnl",
	"equity",
}

// WriteJournalCSV escribe un trade por fila, en orden cronológico, con el PnL
// acumulado y el capital tras cada trade.
func WriteJournalCSV(w io.Writer, j domain.Journal, startingCapital float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(journalHeader); err != nil {
		return fmt.Errorf("export.WriteJournalCSV: header: %w", err)
	}

	cum := 0.0
	for i, t := range j.Trades {
		cum += t.PnL
		row := []string{
			strconv.Itoa(i + 1),
			t.Date.Format("2006-01-02"),
			j.Instrument,
			string(t.Direction),
			fmtFloat(t.EntryPrice),
			fmtFloat(t.ExitPrice),
			fmtFloat(t.Points),
			fmtFloat(t.PnL),
			fmtFloat(cum),
			fmtFloat(startingCapital + cum),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export.WriteJournalCSV: row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJournalFile crea path y escribe el journal en CSV.
func WriteJournalFile(path string, j domain.Journal, startingCapital float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export.WriteJournalFile: %w", err)
	}
	if err := WriteJournalCSV(f, j, startingCapital); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
