// Copyright 2019 The Prometheus Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/promlog"
	promlogflag "github.com/prometheus/common/promlog/flag"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/jayunimelb/bootcamp/internal/download"
	"github.com/jayunimelb/bootcamp/internal/fit"
	"github.com/jayunimelb/bootcamp/internal/montecarlo"
	"github.com/jayunimelb/bootcamp/pool"
)

const namespace = "bootcamp"

func init() {
	prometheus.MustRegister(version.NewCollector("bootcamp"))
}

type downloadOpts struct {
	baseURL  string
	first    int
	count    int
	workers  int
	outDir   string
	timeout  time.Duration
	cacheTTL time.Duration
}

type areaOpts struct {
	samples int
	workers int
	ranks   int
	mode    string
	seed    int64
}

type fitOpts struct {
	points int
	noise  float64
	seed   int64
}

func main() {
	var (
		listenAddress = kingpin.Flag("web.listen-address", "Address to expose /metrics on during a run. Empty disables the listener.").Default("").String()

		dl      = downloadOpts{}
		area    = areaOpts{}
		fitting = fitOpts{}
	)

	downloadCmd := kingpin.Command("download", "Fetch a range of numbered pages and save their embedded images.")
	downloadCmd.Flag("download.base-url", "Base URL of the page archive; pages live at <base-url>/<n>.").Envar("BOOTCAMP_BASE_URL").Default("https://xkcd.com").StringVar(&dl.baseURL)
	downloadCmd.Flag("download.first", "First page number of the batch.").Default("1").IntVar(&dl.first)
	downloadCmd.Flag("download.count", "Number of pages in the batch.").Default("20").IntVar(&dl.count)
	downloadCmd.Flag("download.workers", "Concurrent download workers.").Envar("BOOTCAMP_WORKERS").Default("5").IntVar(&dl.workers)
	downloadCmd.Flag("download.out", "Directory the images are written to.").Default("images").StringVar(&dl.outDir)
	downloadCmd.Flag("download.timeout", "Timeout for a single HTTP request.").Default("10s").DurationVar(&dl.timeout)
	downloadCmd.Flag("download.cache-ttl", "How long a downloaded image URL is remembered. 0 disables the cache.").Default("1h").DurationVar(&dl.cacheTTL)

	areaCmd := kingpin.Command("area", "Estimate pi by Monte Carlo integration of a quarter circle.")
	areaCmd.Flag("area.samples", "Total number of random samples.").Default("1000000").IntVar(&area.samples)
	areaCmd.Flag("area.workers", "Workers for pool mode.").Envar("BOOTCAMP_WORKERS").Default("4").IntVar(&area.workers)
	areaCmd.Flag("area.ranks", "Ranks for message-passing mode.").Default("4").IntVar(&area.ranks)
	areaCmd.Flag("area.mode", "Execution model: pool (shared queue) or ranks (message passing).").Default("pool").EnumVar(&area.mode, "pool", "ranks")
	areaCmd.Flag("area.seed", "Random seed.").Default("1").Int64Var(&area.seed)

	fitCmd := kingpin.Command("fit", "Fit synthetic linear and nonlinear datasets.")
	fitCmd.Flag("fit.points", "Number of synthetic data points.").Default("200").IntVar(&fitting.points)
	fitCmd.Flag("fit.noise", "Standard deviation of the synthetic Gaussian noise.").Default("0.2").Float64Var(&fitting.noise)
	fitCmd.Flag("fit.seed", "Random seed for the synthetic data.").Default("1").Int64Var(&fitting.seed)

	promlogConfig := &promlog.Config{}
	promlogflag.AddFlags(kingpin.CommandLine, promlogConfig)
	kingpin.HelpFlag.Short('h')
	cmd := kingpin.Parse()
	logger := promlog.New(promlogConfig)

	level.Info(logger).Log("msg", "Starting bootcamp", "command", cmd, "version", version.Info())

	if *listenAddress != "" {
		startMetricsListener(*listenAddress, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "download":
		err = runDownload(ctx, dl, logger)
	case "area":
		err = runArea(ctx, area, logger)
	case "fit":
		err = runFit(fitting, logger)
	}
	if err != nil {
		level.Error(logger).Log("msg", "command failed", "command", cmd, "err", err)
		os.Exit(1)
	}
}

func runDownload(ctx context.Context, opts downloadOpts, logger log.Logger) error {
	metrics := pool.NewMetrics(namespace, "download", prometheus.DefaultRegisterer)
	batch := &download.Batch{
		BaseURL: strings.TrimRight(opts.baseURL, "/"),
		First:   opts.first,
		Count:   opts.count,
		Workers: opts.workers,
		OutDir:  opts.outDir,
		Client:  download.NewClient(opts.timeout, logger),
		Cache:   download.NewCache(opts.cacheTTL),
		Pool:    pool.New(pool.WithLogger(logger), pool.WithMetrics(metrics)),
		Logger:  logger,
	}

	start := time.Now()
	stats, err := batch.Run(ctx)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "batch complete",
		"pages", stats.Processed, "failed", stats.Failed,
		"workers", opts.workers, "elapsed", time.Since(start))
	return nil
}

func quarterCircle(x float64) float64 {
	return math.Sqrt(1 - x*x)
}

func runArea(ctx context.Context, opts areaOpts, logger log.Logger) error {
	start := time.Now()

	if opts.mode == "ranks" {
		views, err := montecarlo.EstimateRanks(quarterCircle, 0, 1, opts.samples, opts.ranks, opts.seed)
		if err != nil {
			return err
		}
		// Every rank reports its own view of the combined result.
		for rank, v := range views {
			level.Info(logger).Log("msg", "rank estimate", "rank", rank, "pi", 4*v)
		}
		level.Info(logger).Log("msg", "estimate complete", "mode", opts.mode,
			"samples", opts.samples, "ranks", opts.ranks, "elapsed", time.Since(start))
		return nil
	}

	metrics := pool.NewMetrics(namespace, "area", prometheus.DefaultRegisterer)
	p := pool.New(pool.WithLogger(logger), pool.WithMetrics(metrics))
	est, err := montecarlo.Estimate(ctx, p, quarterCircle, 0, 1, opts.samples, opts.workers, opts.seed)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "estimate complete", "mode", opts.mode,
		"samples", opts.samples, "workers", opts.workers,
		"pi", 4*est, "error", math.Abs(4*est-math.Pi), "elapsed", time.Since(start))
	return nil
}

func runFit(opts fitOpts, logger log.Logger) error {
	// Linear least squares on a noisy line.
	xs, ys := fit.SyntheticLinear(opts.points, 2.5, -1.0, opts.noise, opts.seed)
	slope, intercept, err := fit.Linear(xs, ys)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "linear fit", "slope", slope, "intercept", intercept,
		"true_slope", 2.5, "true_intercept", -1.0)

	// Nonlinear curve fit on a decaying exponential.
	decay := func(params []float64, x float64) float64 {
		return params[0] * math.Exp(-params[1]*x)
	}
	truth := []float64{3.0, 0.7}
	cxs, cys := fit.SyntheticCurve(decay, truth, opts.points, 0, 5, opts.noise/10, opts.seed+1)
	params, err := fit.Curve(decay, cxs, cys, []float64{1, 1})
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "curve fit", "amplitude", params[0], "rate", params[1],
		"true_amplitude", truth[0], "true_rate", truth[1])

	// The same fit through the generic minimizer, as the notebooks do.
	minimum, err := fit.Minimize(func(p []float64) float64 {
		var ssr float64
		for i, x := range cxs {
			r := cys[i] - decay(p, x)
			ssr += r * r
		}
		return ssr
	}, []float64{1, 1}, nil)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "minimize", "amplitude", minimum[0], "rate", minimum[1])

	// Posterior plumbing for an external sampler: report the log-posterior
	// at the fitted parameters.
	post := fit.LogPosterior(
		fit.FlatLogPrior([]float64{0, 0}, []float64{10, 5}),
		fit.GaussianLogLikelihood(decay, cxs, cys, opts.noise/10),
	)
	level.Info(logger).Log("msg", "log-posterior at fit", "value", post(params))
	return nil
}

func startMetricsListener(addr string, logger log.Logger) {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
             <head><title>Bootcamp</title></head>
             <body>
             <h1>Bootcamp</h1>
             <p><a href='/metrics'>Metrics</a></p>
             <h2>Build</h2>
             <pre>` + version.Info() + ` ` + version.BuildContext() + `</pre>
             </body>
             </html>`))
	})
	http.HandleFunc("/-/healthy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	go func() {
		level.Info(logger).Log("msg", "Listening on address", "address", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			level.Error(logger).Log("msg", "Error starting HTTP server", "err", err)
			os.Exit(1)
		}
	}()
}
