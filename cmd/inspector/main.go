package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/GoPolymarket/buildmymeta/internal/config"
	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/service"
)

func main() {
	dir := flag.String("dir", "", "audit log directory (defaults to capture.log_dir)")
	recent := flag.Int("n", 10, "number of recent failures to print")
	flag.Parse()

	if *dir == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		*dir = cfg.Capture.LogDir
	}

	summary, err := service.SummarizeAuditLogs(*dir, *recent)
	if err != nil {
		log.Fatalf("Failed to read audit logs: %v", err)
	}

	fmt.Printf("--- Audit logs in %s ---\n", *dir)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, kind := range model.AuditKinds {
		fmt.Fprintf(w, "%s\t%d\n", kind.FileName(), summary.Counts[kind])
	}
	w.Flush()

	if len(summary.Failures) == 0 {
		return
	}
	fmt.Println("\n--- Recent failures ---")
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOG\tTIMESTAMP\tUSER\tMETHOD\tURL\tSTATUS\tMESSAGE")
	for _, e := range summary.Failures {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Kind, e.Timestamp.Format("2006-01-02T15:04:05.000Z"), e.UserID, e.APIMethod, e.URL, e.Status, e.Message)
	}
	w.Flush()
}
