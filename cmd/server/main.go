/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ARR insights server: loads the dataset (CSV
  directory or persisted store), builds the engine, wires the router and
  runs with graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Open the SQLite store
  3. Load source collections (CSV dir if given, else the store)
  4. Build the immutable Dataset and the engine
  5. Start the HTTP server

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: arr.db, ":memory:" supported)
  -data    directory of source CSVs; when set, re-ingests and persists
  -anchor  anchor month override (YYYY-MM); default is last calendar month

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain for up to 30s,
  close the store, exit.

SEE ALSO:
  - api/server.go: router configuration
  - loader: CSV ingestion
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/arr-insights/analytics"
	"github.com/warp/arr-insights/api"
	"github.com/warp/arr-insights/arr"
	"github.com/warp/arr-insights/loader"
	"github.com/warp/arr-insights/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "arr.db", "SQLite database path")
	dataDir := flag.String("data", "", "directory of source CSV files")
	anchorFlag := flag.String("anchor", "", "anchor month override (YYYY-MM)")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	var src arr.Source
	if *dataDir != "" {
		src, err = loader.LoadDir(*dataDir)
		if err != nil {
			log.Fatalf("Failed to load source data: %v", err)
		}
		if err := store.SaveSource(ctx, src); err != nil {
			log.Fatalf("Failed to persist dataset: %v", err)
		}
		log.Printf("Ingested %d snapshot rows, %d pipeline rows from %s",
			len(src.Snapshots), len(src.Pipeline), *dataDir)
	} else {
		src, err = store.LoadSource(ctx)
		if err != nil {
			log.Fatalf("Failed to load persisted dataset: %v", err)
		}
		log.Printf("Loaded %d snapshot rows, %d pipeline rows from store",
			len(src.Snapshots), len(src.Pipeline))
	}

	anchor := analytics.AnchorFromNow(time.Now())
	if *anchorFlag != "" {
		anchor, err = arr.ParseMonth(*anchorFlag)
		if err != nil {
			log.Fatalf("Invalid -anchor: %v", err)
		}
	}

	engine := analytics.NewEngine(arr.NewDataset(src), anchor)
	handler := api.NewHandler(engine, store, *dataDir)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d (anchor %s)", *port, anchor)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}
