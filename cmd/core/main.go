// Package main provides the poscore engine entry point: it opens the
// local data layer and reports its status. The presentation layer links
// against internal/engine directly; this binary exists for smoke checks
// and operational tooling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/tablewise/poscore/internal/engine"
	"github.com/tablewise/poscore/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	dataDir := flag.String("data-dir", "./data", "directory for the local database")
	export := flag.Bool("export", false, "print a full snapshot of all tables to stdout")
	flag.Parse()

	logging.Init(os.Stderr, logging.LevelInfo)

	fmt.Printf("poscore v%s\n", Version)

	eng := engine.New(engine.Options{DataDir: *dataDir})
	if err := eng.Initialize(); err != nil {
		logging.Error("Engine initialization failed", err)
		os.Exit(1)
	}
	defer eng.Close()

	if *export {
		snapshot, err := eng.ExportAll()
		if err != nil {
			logging.Error("Export failed", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			logging.Error("Failed to encode snapshot", err)
			os.Exit(1)
		}
		return
	}

	status := eng.SyncStatus()
	fmt.Printf("online: %v, pending ops: %d\n", status.Online, status.PendingOps)
}
