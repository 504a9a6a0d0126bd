// focus-sim - replay scripted gaze scenarios through the focus engine
// Runs on a virtual clock and prints every tick, alert and record write.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	ilog "github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/internal/sim"
)

func main() {
	name := flag.String("scenario", "all", "Scenario to run, or \"all\"")
	list := flag.Bool("list", false, "List scenarios and exit")
	asJSON := flag.Bool("json", false, "Print reports as JSON")
	debug := flag.Bool("debug", false, "Log engine internals")
	flag.Parse()

	if *list {
		for _, n := range sim.Names() {
			s, _ := sim.Lookup(n)
			fmt.Printf("%-14s %s\n", n, s.Description)
		}
		return
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	ilog.Init(level)

	names := []string{*name}
	if *name == "all" {
		names = sim.Names()
	}

	var reports []sim.Report
	for _, n := range names {
		s, ok := sim.Lookup(n)
		if !ok {
			log.Fatalf("❌ Unknown scenario %q (try -list)", n)
		}
		reports = append(reports, sim.Run(context.Background(), s, ilog.Component("sim")))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			log.Fatalf("❌ Encode: %v", err)
		}
		return
	}

	for _, r := range reports {
		printReport(r)
	}
}

func printReport(r sim.Report) {
	s, _ := sim.Lookup(r.Scenario)
	fmt.Printf("\n▶ %s: %s\n", r.Scenario, s.Description)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICK\tELAPSED\tSTATE\tCONF\tEVENTS")
	for _, t := range r.Ticks {
		events := ""
		if t.Alert != "" {
			events += fmt.Sprintf("🔔 %q ", t.Alert)
		}
		if t.Alarm {
			events += "🚨 alarm "
		}
		if t.BreakHint {
			events += "☕ break "
		}
		if t.Recorded {
			events += "💾 write "
		}
		if t.Error != "" {
			events += "⚠️  " + t.Error
		}
		fmt.Fprintf(w, "%d\t%v\t%s\t%d%%\t%s\n", t.Index, t.Elapsed, t.State, t.Percent, events)
	}
	w.Flush()

	fmt.Printf("   %d ticks, %d alerts, %d writes\n", len(r.Ticks), r.Alerts, len(r.Writes))
}
