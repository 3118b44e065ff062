package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el reporte en el modo configurado.
func (c *Console) Notify(_ context.Context, r domain.Report) error {
	if len(r.Instruments) == 0 && len(r.Skipped) == 0 {
		fmt.Fprintf(c.out, "[%s] no instruments to report\n", r.GeneratedAt.Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(r)
	} else {
		c.printCompact(r)
	}
	c.printSkipped(r.Skipped)
	return nil
}

// printCompact imprime una línea con la señal de cada instrumento.
func (c *Console) printCompact(r domain.Report) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] mom %.2f%% vix %.1f", r.GeneratedAt.Format("15:04:05"), r.LiveMomentum, r.LiveVIX)
	for _, ir := range r.Instruments {
		fmt.Fprintf(&sb, " | %s %s %s @%s", ir.Signal.Icon(), ir.Key, ir.Signal, money(ir.Entry, 1))
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime cabecera, tabla de señales y tabla de estadísticas anuales.
func (c *Console) printFull(r domain.Report) {
	fmt.Fprintf(c.out, "\n[%s] QUANT-PRO STRATEGY REPORT  threshold %.2f%%\n",
		r.GeneratedAt.Format("2006-01-02 15:04:05"), r.Threshold)
	fmt.Fprintf(c.out, "  Average momentum: %.2f%%   VIX: %.2f\n", r.LiveMomentum, r.LiveVIX)

	c.printSignals(r.Instruments)
	c.printYearly(r.Instruments)
}

func (c *Console) printSignals(irs []domain.InstrumentReport) {
	if len(irs) == 0 {
		return
	}
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Instrument", "Signal", "Entry", "Mom%", "Vol", "Last trades", "Equity")

	for _, ir := range irs {
		tbl.Append(
			ir.Name,
			ir.Signal.Icon()+" "+ir.Signal.String(),
			money(ir.Entry, 1),
			fmt.Sprintf("%.2f", ir.Momentum),
			fmt.Sprintf("%.1f", ir.Volatility),
			recentLabel(ir.Recent),
			money(ir.FinalEquity, 0),
		)
	}
	tbl.Render()
}

func (c *Console) printYearly(irs []domain.InstrumentReport) {
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Instrument", "Year", "Trades", "Win%", "PnL", "PF", "Avg win", "Avg loss")

	rows := 0
	for _, ir := range irs {
		for _, y := range ir.Yearly {
			tbl.Append(
				ir.Name,
				fmt.Sprintf("%d", y.Year),
				fmt.Sprintf("%d", y.Trades()),
				fmt.Sprintf("%.1f", y.WinRate()*100),
				signedMoney(y.TotalPnL, 0),
				fmt.Sprintf("%.2f", y.ProfitFactor),
				money(y.AvgWin, 0),
				money(y.AvgLoss, 0),
			)
			rows++
		}
	}
	if rows == 0 {
		fmt.Fprintln(c.out, "  No trades in the reported years.")
		return
	}
	tbl.Render()
	fmt.Fprintln(c.out, "  PF = gross profit / gross loss (gross profit when there are no losses)")
}

func (c *Console) printSkipped(failures []domain.InstrumentFailure) {
	for _, f := range failures {
		fmt.Fprintf(c.out, "  !! %s skipped [%s]: %s\n", f.Key, f.Code, f.Err)
	}
}

// PrintHistory imprime las ejecuciones guardadas.
func (c *Console) PrintHistory(runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No stored runs yet. Run a report first.")
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Run", "Generated", "Thr%", "Mom%", "Signals", "Skipped")
	for _, run := range runs {
		signals := make([]string, 0, len(run.Signals))
		for _, s := range run.Signals {
			signals = append(signals, s.Instrument+" "+s.Signal.String())
		}
		tbl.Append(
			shortID(run.ID),
			run.GeneratedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", run.Threshold),
			fmt.Sprintf("%.2f", run.LiveMomentum),
			strings.Join(signals, ", "),
			fmt.Sprintf("%d", run.Skipped),
		)
	}
	tbl.Render()
}

// --- helpers ---

func recentLabel(trades []domain.Trade) string {
	if len(trades) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(trades))
	for _, t := range trades {
		parts = append(parts, fmt.Sprintf("%s %s %s€", t.Date.Format("01-02"), t.Direction, signedMoney(t.PnL, 0)))
	}
	return strings.Join(parts, " / ")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
