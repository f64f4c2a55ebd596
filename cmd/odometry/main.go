// Command odometry logs wheel-encoder positions reported by the odometry
// board over serial, for comparison with lidar position fixes.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/lidarloc/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lidarloc/internal/monitoring"
	"github.com/banshee-data/lidarloc/internal/odometry"
	"github.com/banshee-data/lidarloc/internal/serialmux"
)

var (
	devMode  = flag.Bool("dev", false, "Replay lines from -fixtures instead of opening a serial port")
	fixtures = flag.String("fixtures", "fixtures.txt", "Fixture file replayed in dev mode")
	port     = flag.String("port", "/dev/ttyUSB1", "Serial port to use (ignored in dev mode)")
	baud     = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	csvPath  = flag.String("csv", "arduino_positions_xy.csv", "CSV file to append samples to (empty to disable)")
	dbPath   = flag.String("db", "", "SQLite database to record samples to")
	verbose  = flag.Bool("verbose", false, "Log every recorded sample")
)

func main() {
	flag.Parse()
	monitoring.EnableDiagnostics(*verbose)

	if *csvPath == "" && *dbPath == "" {
		log.Fatal("at least one of -csv or -db is required")
	}

	var mux serialmux.SerialMuxInterface
	if *devMode {
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		mux = serialmux.NewReplaySerialMux(lines, 500*time.Millisecond, true)
	} else {
		opts := serialmux.PortOptions{BaudRate: *baud}
		var err error
		mux, err = serialmux.NewRealSerialMux(*port, opts)
		if err != nil {
			log.Fatalf("failed to open odometry port: %v", err)
		}
		log.Printf("opened %s at %s", *port, opts)
	}
	defer mux.Close()

	var sinks odometry.MultiSink
	if *csvPath != "" {
		out, err := odometry.NewCSVSink(*csvPath)
		if err != nil {
			log.Fatalf("failed to open CSV output: %v", err)
		}
		defer out.Close()
		sinks = append(sinks, out)
		log.Printf("logging started, data will be saved to %s", *csvPath)
	}
	if *dbPath != "" {
		db, err := sqlite.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		store := sqlite.NewOdometryStore(db)
		sinks = append(sinks, store)
		log.Printf("recording odometry session %s to %s", store.SessionID(), *dbPath)
	}

	// Subscribe before the monitor starts so the first lines are kept.
	recorder := odometry.NewRecorder(mux, sinks)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("serial error: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		stats, err := recorder.Run(ctx)
		if err != nil && err != context.Canceled {
			log.Printf("recorder stopped: %v", err)
		}
		log.Printf("logging stopped: %d lines, %d samples, %d unparseable, %d write errors",
			stats.Lines, stats.Samples, stats.Malformed, stats.SinkErrors)
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
