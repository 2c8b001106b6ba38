// load uploads generated policy batches to the import endpoint and reports
// latency percentiles.
package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/nimasrn/policy-desk/internal/dates"
	"github.com/nimasrn/policy-desk/test/fixtures"
	"github.com/valyala/fasthttp"
)

type loadConfig struct {
	URL       string        `env:"TARGET_URL,default=http://localhost:8080/api/v1/policies/import"`
	Uploads   int           `env:"UPLOADS,default=200"`
	BatchSize int           `env:"BATCH_SIZE,default=500"`
	Workers   int           `env:"CONCURRENT_WORKERS,default=8"`
	Owners    int           `env:"OWNERS,default=20"`
	Timeout   time.Duration `env:"REQUEST_TIMEOUT,default=60s"`
}

type stats struct {
	success   atomic.Int64
	failed    atomic.Int64
	rowsSaved atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (s *stats) observe(d time.Duration) {
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func (s *stats) percentile(p float64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) == 0 {
		return 0
	}
	sorted := slices.Clone(s.latencies)
	slices.Sort(sorted)
	i := min(int(float64(len(sorted))*p), len(sorted)-1)
	return sorted[i]
}

func upload(client *fasthttp.Client, cfg loadConfig, owner string, body []byte, st *stats) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(cfg.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("text/csv")
	req.Header.Set("X-Owner-Id", owner)
	req.SetBody(body)

	start := time.Now()
	err := client.DoTimeout(req, resp, cfg.Timeout)
	st.observe(time.Since(start))

	if err != nil || resp.StatusCode() != fasthttp.StatusOK {
		st.failed.Add(1)
		return
	}
	st.success.Add(1)
	st.rowsSaved.Add(int64(cfg.BatchSize))
}

func main() {
	var cfg loadConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Starting import load test...")
	fmt.Printf("Target: %s\n", cfg.URL)
	fmt.Printf("Uploads: %d x %d rows across %d owners\n", cfg.Uploads, cfg.BatchSize, cfg.Owners)
	fmt.Printf("Concurrent workers: %d\n", cfg.Workers)
	fmt.Println(strings.Repeat("-", 50))

	client := &fasthttp.Client{MaxConnsPerHost: cfg.Workers}
	today := dates.Today(time.Now(), time.UTC)
	st := &stats{}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				body := fixtures.CSV(fixtures.Batch(fmt.Sprintf("LT%d", n), cfg.BatchSize, today)...)
				upload(client, cfg, fmt.Sprintf("load-owner-%d", n%cfg.Owners), body, st)
			}
		}()
	}

	start := time.Now()
	for n := 0; n < cfg.Uploads; n++ {
		jobs <- n
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	total := st.success.Load() + st.failed.Load()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Uploads: %d ok, %d failed\n", st.success.Load(), st.failed.Load())
	fmt.Printf("Rows/s: %.1f\n", float64(st.rowsSaved.Load())/elapsed.Seconds())
	if total > 0 {
		fmt.Printf("P50: %s  P95: %s  P99: %s\n", st.percentile(0.50), st.percentile(0.95), st.percentile(0.99))
	}
}
