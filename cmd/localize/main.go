// Command localize estimates the sensor position from 2D lidar scans by
// fitting circular landmarks and trilaterating against the two largest.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/banshee-data/lidarloc/internal/config"
	"github.com/banshee-data/lidarloc/internal/lidar/adapters"
	"github.com/banshee-data/lidarloc/internal/lidar/pipeline"
	"github.com/banshee-data/lidarloc/internal/lidar/scanio"
	"github.com/banshee-data/lidarloc/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lidarloc/internal/monitoring"
	"github.com/banshee-data/lidarloc/internal/transport"
	"github.com/banshee-data/lidarloc/internal/version"
)

var (
	configPath     = flag.String("config", "", "Tuning config JSON (defaults to built-in parameters)")
	scansPath      = flag.String("scans", "", "Replay scans from a JSON-lines file")
	natsURL        = flag.String("nats-url", "", "NATS server URL for live scans and position publishing")
	scanSubject    = flag.String("scan-subject", transport.DefaultScanSubject, "NATS subject to read scans from")
	scanBuffer     = flag.Int("scan-buffer", transport.DefaultScanBuffer, "Live scans buffered before new ones are dropped")
	recordPath     = flag.String("record", "", "Append every scan read to this JSON-lines file")
	csvPath        = flag.String("csv", "", "Append positions as x,y rows to this CSV file")
	dbPath         = flag.String("db", "", "Record runs and positions to this SQLite database")
	publishSubject = flag.String("publish-subject", "", "NATS subject to publish positions on (requires -nats-url)")
	verbose        = flag.Bool("verbose", false, "Log per-scan clustering and landmark diagnostics")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

func loadConfig() *config.TuningConfig {
	if *configPath == "" {
		return config.DefaultTuningConfig()
	}
	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("loaded tuning config from %s", *configPath)
	return cfg
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if *showVersion {
		fmt.Println(version.String())
		return 0
	}
	if (*scansPath == "") == (*natsURL == "") {
		log.Fatal("exactly one of -scans or -nats-url is required")
	}
	if *publishSubject != "" && *natsURL == "" {
		log.Fatal("-publish-subject requires -nats-url")
	}

	cfg := loadConfig()
	monitoring.EnableDiagnostics(*verbose || cfg.GetDiagnostics())
	params := cfg.Params()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var nc *nats.Conn
	if *natsURL != "" {
		var err error
		nc, err = nats.Connect(*natsURL, nats.Name("lidarloc-localize"))
		if err != nil {
			log.Printf("failed to connect to NATS: %v", err)
			return 1
		}
		defer nc.Close()
		transport.InstallPropagator()
	}

	var (
		src        pipeline.Source
		sourceName string
	)
	if *scansPath != "" {
		r, err := scanio.Open(*scansPath)
		if err != nil {
			log.Printf("failed to open scans: %v", err)
			return 1
		}
		defer func() {
			if r.Skipped() > 0 {
				log.Printf("skipped %d malformed scan lines", r.Skipped())
			}
			r.Close()
		}()
		src, sourceName = r, *scansPath
	} else {
		sub, err := transport.NewScanSubscriber(nc, *scanSubject, *scanBuffer)
		if err != nil {
			log.Printf("failed to subscribe to scans: %v", err)
			return 1
		}
		defer func() {
			if sub.Dropped() > 0 {
				log.Printf("dropped %d scans while busy", sub.Dropped())
			}
			sub.Close()
		}()
		src, sourceName = sub, "nats:"+*scanSubject
	}

	if *recordPath != "" {
		w, err := scanio.Create(*recordPath)
		if err != nil {
			log.Printf("failed to open scan recording: %v", err)
			return 1
		}
		defer w.Close()
		src = scanio.Tee(src, w)
	}

	sinks := pipeline.MultiSink{
		pipeline.SinkFunc(func(_ context.Context, fix pipeline.Fix) error {
			log.Printf("scan %d: position (%.2f, %.2f)", fix.Seq, fix.Position.X, fix.Position.Y)
			return nil
		}),
	}
	if *csvPath != "" {
		out, err := adapters.NewPositionCSV(*csvPath)
		if err != nil {
			log.Printf("failed to open CSV output: %v", err)
			return 1
		}
		defer out.Close()
		sinks = append(sinks, out)
	}
	if *dbPath != "" {
		db, err := sqlite.Open(*dbPath)
		if err != nil {
			log.Printf("failed to open database: %v", err)
			return 1
		}
		defer db.Close()
		store, err := sqlite.NewPositionStore(db, params, version.Version, sourceName)
		if err != nil {
			log.Printf("failed to start run: %v", err)
			return 1
		}
		log.Printf("recording run %s to %s", store.Run().RunID, *dbPath)
		sinks = append(sinks, store)
	}
	if *publishSubject != "" {
		sinks = append(sinks, transport.NewPositionPublisher(nc, *publishSubject))
	}

	loc, err := pipeline.NewLocalizer(params, sinks)
	if err != nil {
		log.Printf("invalid parameters: %v", err)
		return 1
	}

	log.Printf("localize %s: reading scans from %s", version.Version, sourceName)
	stats, err := loc.Run(ctx, src)
	log.Printf("processed %d scans: %d positions, %d without estimate %v, %d sink errors",
		stats.Scans, stats.Fixes, stats.Scans-stats.Fixes, stats.NoEstimate, stats.SinkErrors)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("localization stopped: %v", err)
		return 1
	}
	return 0
}
