package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	luaflow "github.com/luaflow/luaflow"
	"github.com/luaflow/luaflow/internal/adapters/sink"
	"github.com/luaflow/luaflow/internal/adapters/tracker"
	"github.com/luaflow/luaflow/internal/app/config"
	"github.com/luaflow/luaflow/internal/app/pipeline"
	base "github.com/luaflow/luaflow/pkg/luaflow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("luaflow %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to host configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Replay.File == "" {
		return fmt.Errorf("replay.file is required for run")
	}

	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()

	outSink, closeSink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	doc, err := cfg.Filter.CategoryDocument()
	if err != nil {
		return err
	}

	st, err := luaflow.Init(doc, outSink,
		luaflow.WithDataDir(cfg.DataDir),
		luaflow.WithTracker(tracker.LogTracker{}),
	)
	if err != nil {
		return fmt.Errorf("init filter stage: %w", err)
	}
	defer func() {
		if err := luaflow.Shutdown(st); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	in, err := os.Open(cfg.Replay.File)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batches, err := pipeline.RunReplay(in, st, base.DefaultObservability())
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	fmt.Printf("replayed %d batches through stage %q (state %s)\n", batches, st.Category(), st.State())

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}

func buildSink(cfg *config.Config) (luaflow.BatchSink, func(), error) {
	if cfg.Timescale.ConnString == "" {
		s := luaflow.NewCallbackSink("stdout", func(batch *luaflow.RecordBatch) error {
			for _, rec := range batch.Records {
				fmt.Printf("%s %s %v\n", rec.Timestamp.Format(time.RFC3339), rec.Asset, rec.Datapoints)
			}
			return nil
		})
		return s, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Timescale.ConnString)
	if err != nil {
		return nil, nil, err
	}
	return sink.NewTimescaleSink(db, cfg.Timescale.Table), func() { _ = db.Close() }, nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := config.Load(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"luaflow_records_forwarded_total": 0,
		"luaflow_batches_filtered_total":  0,
		"luaflow_passthrough_total":       0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] forwarded=%f filtered=%f passthrough=%f\n",
		time.Now().Format(time.RFC3339),
		targets["luaflow_records_forwarded_total"],
		targets["luaflow_batches_filtered_total"],
		targets["luaflow_passthrough_total"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`LuaFlow CLI

Usage:
  luaflow <command> [flags]

Commands:
  run        Replay record batches from a file through the scripted filter stage
  validate   Load and validate a config file without running anything
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  luaflow run -config ./data/config.yaml
  luaflow validate -config ./data/config.yaml
  luaflow stats -url http://localhost:9100/metrics -interval 1s
`)
}
