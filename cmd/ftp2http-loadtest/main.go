// Command ftp2http-loadtest drives concurrent uploads through an in-process
// gateway against a local discarding backend and reports relay latency.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/accounts"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		users       = flag.Int("users", 50, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		uploads     = flag.Int("uploads", 5000, "uploads per run")
		size        = flag.Int("size", 64<<10, "bytes per upload")
		spool       = flag.Int64("spool", 8<<20, "spool threshold in bytes")
		redisAddr   = flag.String("redis-addr", "", "redis address for the login throttle; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *uploads <= 0 || *size < 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency and uploads must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	target, received, stopBackend, err := startBackend()
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
	defer stopBackend()

	hash, err := bcrypt.GenerateFromPassword([]byte("load-pw"), bcrypt.MinCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}

	cfg := ftp2http.DefaultConfig()
	cfg.Relay.URL = target
	cfg.Relay.SpoolThreshold = *spool
	cfg.Auth.CachePasswords = true
	cfg.Security.EnableLoginThrottle = true
	for i := 0; i < *users; i++ {
		cfg.Auth.Accounts = append(cfg.Auth.Accounts, accounts.NewAccount(fmt.Sprintf("user%d", i), string(hash)))
	}

	gw, err := ftp2http.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway build: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	fmt.Printf("logging in %d users...\n", *users)
	sessions := make([]*ftp2http.Session, *users)
	for i := range sessions {
		sess, err := gw.Authenticate(ctx, fmt.Sprintf("user%d", i), "load-pw")
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		sessions[i] = sess
	}

	payload := make([]byte, *size)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	stats := runUploadPhase(ctx, gw, sessions, payload, *uploads, *concurrency)

	fmt.Println("---- results ----")
	printStats("upload", stats)
	fmt.Printf("backend received %d requests\n", received.Load())
	snap := gw.MetricsSnapshot()
	fmt.Printf("relayed=%d failed=%d bytes=%d\n",
		snap.Counters[ftp2http.MetricUploadRelayed],
		snap.Counters[ftp2http.MetricUploadFailed],
		snap.Counters[ftp2http.MetricUploadBytes],
	)
}

func startBackend() (string, *atomic.Int64, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, nil, err
	}
	var received atomic.Int64
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			received.Add(1)
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	return "http://" + ln.Addr().String() + "/upload", &received, func() { _ = srv.Close() }, nil
}

func runUploadPhase(ctx context.Context, gw *ftp2http.Gateway, sessions []*ftp2http.Session, payload []byte, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				sess := sessions[i%len(sessions)]
				t0 := time.Now()
				ok := uploadOnce(ctx, gw, sess, fmt.Sprintf("%s/file-%d.bin", sess.Home, i), payload)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func uploadOnce(ctx context.Context, gw *ftp2http.Gateway, sess *ftp2http.Session, path string, payload []byte) bool {
	it, err := gw.OpenUpload(ctx, sess, path, "wb")
	if err != nil {
		return false
	}
	const chunk = 8 << 10
	for off := 0; off < len(payload); off += chunk {
		end := min(off+chunk, len(payload))
		if _, err := it.Write(payload[off:end]); err != nil {
			it.Abort(err)
			return false
		}
	}
	return it.Finish(ctx).OK()
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
