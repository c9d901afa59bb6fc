package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type options struct {
	BaseURL     string
	Path        string
	Method      string
	Body        string
	APIKey      string
	Concurrency int
	Requests    int
	RPS         float64
	Timeout     time.Duration
}

func (o *options) validate() error {
	if o.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if o.Requests < 1 {
		return errors.New("requests must be at least 1")
	}
	if o.BaseURL == "" {
		return errors.New("url is required")
	}
	return nil
}

// report aggregates the outcome of a run. Status 0 counts transport errors.
type report struct {
	mu        sync.Mutex
	statuses  map[int]int
	latencies []time.Duration
	elapsed   time.Duration
}

func (r *report) record(status int, d time.Duration) {
	r.mu.Lock()
	r.statuses[status]++
	r.latencies = append(r.latencies, d)
	r.mu.Unlock()
}

func (r *report) total() int {
	return len(r.latencies)
}

// percentile returns the p-th latency, p in [0,1]. Latencies must be sorted.
func (r *report) percentile(p float64) time.Duration {
	if len(r.latencies) == 0 {
		return 0
	}
	i := int(p * float64(len(r.latencies)-1))
	return r.latencies[i]
}

func (r *report) print(w io.Writer) {
	sort.Slice(r.latencies, func(i, j int) bool { return r.latencies[i] < r.latencies[j] })

	codes := make([]int, 0, len(r.statuses))
	for c := range r.statuses {
		codes = append(codes, c)
	}
	sort.Ints(codes)

	fmt.Fprintf(w, "requests: %d in %s (%.1f req/s)\n",
		r.total(), r.elapsed.Round(time.Millisecond), float64(r.total())/r.elapsed.Seconds())
	for _, c := range codes {
		label := http.StatusText(c)
		if c == 0 {
			label = "transport error"
		}
		n := r.statuses[c]
		bar := strings.Repeat("#", n*40/r.total())
		fmt.Fprintf(w, "  %3d %-24s %6d %s\n", c, label, n, bar)
	}
	fmt.Fprintf(w, "latency p50=%s p95=%s p99=%s max=%s\n",
		r.percentile(0.50), r.percentile(0.95), r.percentile(0.99), r.percentile(1))
}

// run issues opts.Requests requests over opts.Concurrency workers.
func run(ctx context.Context, opts options) (*report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        opts.Concurrency,
			MaxIdleConnsPerHost: opts.Concurrency,
		},
	}
	defer client.CloseIdleConnections()

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), opts.Concurrency)
	}

	url := strings.TrimRight(opts.BaseURL, "/") + opts.Path
	rep := &report{statuses: make(map[int]int)}

	jobs := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < opts.Requests; i++ {
			select {
			case jobs <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	start := time.Now()
	for w := 0; w < opts.Concurrency; w++ {
		g.Go(func() error {
			for range jobs {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return nil
					}
				}
				status, d := fire(ctx, client, opts, url)
				rep.record(status, d)
			}
			return nil
		})
	}
	err := g.Wait()
	rep.elapsed = time.Since(start)
	return rep, err
}

func fire(ctx context.Context, client *http.Client, opts options, url string) (int, time.Duration) {
	var body io.Reader
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, url, body)
	if err != nil {
		return 0, 0
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.APIKey != "" {
		req.Header.Set("X-API-Key", opts.APIKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, time.Since(start)
}
