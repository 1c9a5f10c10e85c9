// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// anomaly-detector tails the configured log sources, feeds every line to the
// per-source anomaly parser and hands produced crash reports to
// crash_reporter (or a spool directory).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/anomaly"
	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/config"
	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/log"
)

type Config struct {
	// Address for the /metrics endpoint; empty disables it.
	HTTP string `json:"http"`
	// Bypass sampling and report every non-duplicate anomaly.
	// Set on test images.
	AlwaysSend bool `json:"always_send"`
	// Path to the crash_reporter binary. If empty, reports are spooled to
	// SpoolDir instead.
	CrashReporter string  `json:"crash_reporter"`
	SpoolDir      string  `json:"spool_dir"`
	Weights       Weights `json:"weights"`
	Sources       []Source `json:"sources"`
}

type Source struct {
	Path   string `json:"path"`
	Parser string `json:"parser"`
	// Vsock context ID of the guest VM, termina sources only.
	CID int32 `json:"cid"`
}

const periodicUpdateInterval = 10 * time.Second

func main() {
	flagConfig := flag.String("config", "", "config file")
	flag.Parse()
	log.SetName("anomaly-detector")
	cfg := defaultConfig()
	if err := config.LoadFile(*flagConfig, cfg); err != nil {
		log.Fatal(err)
	}
	if err := run(cfg); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}

func defaultConfig() *Config {
	return &Config{
		CrashReporter: "/sbin/crash_reporter",
		SpoolDir:      "/var/spool/anomaly-detector",
		Weights:       defaultWeights(),
	}
}

func run(cfg *Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	collector, err := newCollector(cfg)
	if err != nil {
		return err
	}
	var sender anomaly.TerminaEventSender = newDBusEventSender()
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range cfg.Sources {
		src := src
		parser, err := makeParser(cfg, src, sender)
		if err != nil {
			return err
		}
		tailer := newTailer(src.Path)
		g.Go(func() error {
			return tailer.run(ctx)
		})
		g.Go(func() error {
			return watchSource(ctx, src, tailer, parser, collector)
		})
	}
	if cfg.HTTP != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.HTTP)
		})
	}
	log.Logf(0, "watching %v sources", len(cfg.Sources))
	return g.Wait()
}

func makeParser(cfg *Config, src Source, sender anomaly.TerminaEventSender) (anomaly.Parser, error) {
	// Each parser gets its own sampler: samplers are not thread-safe and
	// sources are driven concurrently.
	sampler := anomaly.NewSampler(rand.NewSource(time.Now().UnixNano()), cfg.AlwaysSend)
	weights := &cfg.Weights
	switch src.Parser {
	case "service":
		return anomaly.NewServiceParser(sampler, weights), nil
	case "selinux":
		return anomaly.NewSELinuxParser(sampler, weights), nil
	case "kernel":
		return anomaly.NewKernelParser(sampler, weights), nil
	case "suspend":
		return anomaly.NewSuspendParser(sampler, weights), nil
	case "cryptohome":
		return anomaly.NewCryptohomeParser(), nil
	case "tcsd":
		return anomaly.NewTcsdParser(), nil
	case "termina":
		return anomaly.NewTerminaParser(sender, src.CID), nil
	}
	return nil, fmt.Errorf("unknown parser %q for source %v", src.Parser, src.Path)
}

// watchSource owns the parser: tailed lines and periodic updates are
// serialized here because parser instances do not allow overlapping calls.
func watchSource(ctx context.Context, src Source, tailer *tailer,
	parser anomaly.Parser, collector *collector) error {
	ticker := time.NewTicker(periodicUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-tailer.lines:
			if !ok {
				return fmt.Errorf("tailer for %v stopped", src.Path)
			}
			statLines.WithLabelValues(src.Path).Inc()
			if rep := parser.ParseLine(line); rep != nil {
				collector.collect(src.Path, rep)
			}
		case <-ticker.C:
			if rep := parser.PeriodicUpdate(); rep != nil {
				collector.collect(src.Path, rep)
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
