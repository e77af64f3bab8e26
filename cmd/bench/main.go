// Command bench runs a synthetic workload against the cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/segcache/cache"
	"github.com/IvanBrykalov/segcache/config"
	pmet "github.com/IvanBrykalov/segcache/metrics/prom"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type counters struct {
	reads, writes, hits, misses, total, evictions atomic.Uint64
}

func main() {
	// ---- Flags ----
	var (
		configPath = flag.String("config", "", "TOML cache config (flags below override it)")
		capacity   = flag.Int("cap", 0, "max cache capacity in entries (0 = from config)")
		segments   = flag.Int("segments", 0, "number of segments (0 = from config)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keyMode = flag.String("keymode", "zipf", "key distribution: zipf | uuid")
		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")

		logLevel  = flag.String("log-level", "info", "log level: debug | info | warn | error")
		logFormat = flag.String("log-format", "text", "log format: text | json")
	)
	flag.Parse()

	log := newLogger(*logLevel, *logFormat)

	// ---- Config ----
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.WithError(err).Fatal("load config")
		}
	}
	if *capacity > 0 {
		cfg.MaxCapacity = *capacity
	}
	if *segments > 0 {
		cfg.Segments = *segments
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.WithField("addr", *pprofAddr).Info("pprof: serving")
			log.WithError(http.ListenAndServe(*pprofAddr, nil)).Error("pprof server stopped")
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "segcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.WithField("addr", *metricsAddr).Info("metrics: serving")
		log.WithError(http.ListenAndServe(*metricsAddr, nil)).Error("metrics server stopped")
	}()

	// ---- Build cache ----
	var cnt counters
	opt := config.Options[string, string](cfg)
	opt.Metrics = metrics
	opt.Logger = log.WithField("component", "cache")
	opt.OnEvict = func(string, string, cache.EvictReason) { cnt.evictions.Add(1) }
	c := cache.New[string, string](opt)
	defer func() { _ = c.Close() }()

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = cfg.MaxCapacity / 2
	}
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		if _, _, err := c.Put(k, "v"+strconv.Itoa(i)); err != nil {
			log.WithError(err).Fatal("preload")
		}
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}
	if *keyMode != "zipf" && *keyMode != "uuid" {
		log.WithField("keymode", *keyMode).Fatal("unknown key mode (use zipf or uuid)")
	}
	useUUID := *keyMode == "uuid"

	log.WithFields(logrus.Fields{
		"max_capacity": cfg.MaxCapacity,
		"segments":     cfg.Segments,
		"workers":      workersN,
		"keymode":      *keyMode,
		"duration":     *duration,
	}).Info("starting workload")

	// ---- Load generation ----
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		id := w
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			nextKey := func() string {
				if useUUID {
					return uuid.NewString()
				}
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}

				cnt.total.Add(1)
				if int(localR.Int31n(100)) < readPctVal {
					cnt.reads.Add(1)
					_, ok, err := c.Get(nextKey())
					if err != nil {
						return err
					}
					if ok {
						cnt.hits.Add(1)
					} else {
						cnt.misses.Add(1)
					}
				} else {
					cnt.writes.Add(1)
					if _, _, err := c.Put(nextKey(), "v"+strconv.Itoa(localR.Int())); err != nil {
						return err
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("worker failed")
	}
	elapsed := time.Since(start)

	// ---- Report ----
	ops := cnt.total.Load()
	readsN := cnt.reads.Load()
	hitsN := cnt.hits.Load()

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	st := c.Stats()
	log.WithFields(logrus.Fields{
		"elapsed":   elapsed,
		"seed":      seedBase,
		"keys":      *keys,
		"ops":       ops,
		"ops_per_s": float64(ops) / elapsed.Seconds(),
		"reads":     readsN,
		"writes":    cnt.writes.Load(),
		"hits":      hitsN,
		"misses":    cnt.misses.Load(),
		"hit_rate":  strconv.FormatFloat(hitRate, 'f', 2, 64) + "%",
		"evictions": cnt.evictions.Load(),
		"len":       c.Len(),
		"buckets":   st.Buckets,
	}).Info("workload finished")
}

func newLogger(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.WithError(err).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
