package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	prettytext "github.com/jedib0t/go-pretty/v6/text"

	"fare-tracker/models"
)

// ReportPrinter renders a run report as console tables.
type ReportPrinter struct {
	out io.Writer
}

func NewReportPrinter(out io.Writer) *ReportPrinter {
	return &ReportPrinter{out: out}
}

func (p *ReportPrinter) Print(r *models.Report) {
	sep := strings.Repeat("═", 60)
	fmt.Fprintf(p.out, "\n%s\n", prettytext.Colors{prettytext.Bold, prettytext.FgMagenta}.Sprintf("%s\n  ✈  FARE CHECK: %s\n%s", sep, r.Trip, sep))

	summary := newTable(p.out)
	summary.SetTitle("Run")
	summary.AppendRows([]table.Row{
		{"Searches", r.Queries},
		{"  with no flights", r.QueriesEmpty},
		{"  failed", r.QueriesFailed},
		{"Rows dropped", r.RowsDropped},
		{"Itineraries seen", r.BatchSize},
		{"History rows", r.LogSize},
		{"Log file", r.LogPath},
		{"Took", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()},
	})
	summary.Render()

	if len(r.NewLows) == 0 {
		fmt.Fprintln(p.out, "  No new low prices.")
	} else {
		lows := newTable(p.out)
		lows.SetTitle("New low prices")
		lows.AppendHeader(table.Row{"Date", "From", "To", "Departs", "Arrives", "Duration", "Price", "Prev best", "Last seen"})
		for _, d := range r.NewLows {
			lows.AppendRow(append(keyRow(d.ItineraryKey),
				prettytext.FgGreen.Sprintf("$%d", d.BestPrice),
				fmt.Sprintf("$%d", d.PreviousBest),
				fmt.Sprintf("$%d", d.LastSeen),
			))
		}
		lows.Render()
	}

	if len(r.NewEntries) == 0 {
		fmt.Fprintln(p.out, "  No new entries logged.")
	} else {
		entries := newTable(p.out)
		entries.SetTitle("New entries")
		entries.AppendHeader(table.Row{"Date", "From", "To", "Departs", "Arrives", "Duration", "Price"})
		for _, o := range r.NewEntries {
			entries.AppendRow(append(keyRow(o.ItineraryKey), fmt.Sprintf("$%d", o.BestPrice)))
		}
		entries.Render()
	}
	fmt.Fprintln(p.out)
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func keyRow(k models.ItineraryKey) table.Row {
	return table.Row{k.Date, k.DepartCity, k.ArriveCity, k.DepartTime, k.ArriveTime, k.Duration}
}
