// Command kiosk_replay replays captured kiosk punch events against a running
// API instance. It is used to soak-test punch ingestion and the kiosk rate
// limiter with realistic traffic before a terminal rollout.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type punch struct {
	KioskID    string  `json:"kiosk_id"`
	EmployeeID string  `json:"employee_id"`
	Date       string  `json:"date"`
	TimeIn     *string `json:"time_in,omitempty"`
	TimeOut    *string `json:"time_out,omitempty"`
}

type capture struct {
	Punches []punch `json:"punches"`
}

type result struct {
	Punch    punch
	Status   int
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base        string
		capturePath string
		concurrency int
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&capturePath, "capture", filepath.Join("scripts", "kiosk_replay", "punches.json"), "Path to captured punches JSON file")
	flag.IntVar(&concurrency, "concurrency", 4, "Number of concurrent kiosk workers")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	punches, err := loadCapture(capturePath)
	if err != nil {
		log.Fatalf("failed to load capture: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	work := make(chan punch)
	results := make(chan result, len(punches))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				results <- sendPunch(client, base, p)
			}
		}()
	}

	for _, p := range punches {
		work <- p
	}
	close(work)
	wg.Wait()
	close(results)

	var all []result
	for res := range results {
		all = append(all, res)
	}
	failures := printReport(all)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadCapture(path string) ([]punch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc capture
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Punches) == 0 {
		return nil, fmt.Errorf("no punches defined in %s", path)
	}
	return doc.Punches, nil
}

func sendPunch(client *http.Client, base string, p punch) result {
	res := result{Punch: p}

	payload, err := json.Marshal(map[string]interface{}{
		"employee_id": p.EmployeeID,
		"date":        p.Date,
		"time_in":     p.TimeIn,
		"time_out":    p.TimeOut,
	})
	if err != nil {
		res.Err = fmt.Errorf("marshal punch: %w", err)
		return res
	}

	url := strings.TrimRight(base, "/") + "/api/v1/attendance/punch"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	if p.KioskID != "" {
		req.Header.Set("X-Kiosk-ID", p.KioskID)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode
	return res
}

func printReport(results []result) int {
	fmt.Println("Kiosk Replay Report")
	fmt.Println("===================")

	var (
		failures  int
		throttled int
		durations []time.Duration
	)
	for _, res := range results {
		switch {
		case res.Err != nil:
			failures++
			fmt.Printf("[ERROR] %s %s: %v\n", res.Punch.EmployeeID, res.Punch.Date, res.Err)
		case res.Status == http.StatusTooManyRequests:
			throttled++
		case res.Status >= 500:
			failures++
			fmt.Printf("[FAIL] %s %s: status %d\n", res.Punch.EmployeeID, res.Punch.Date, res.Status)
		}
		durations = append(durations, res.Duration)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	var p95 time.Duration
	if len(durations) > 0 {
		p95 = durations[len(durations)*95/100]
	}

	fmt.Printf("Total: %d, Failures: %d, Throttled: %d, p95: %s\n",
		len(results), failures, throttled, p95)
	return failures
}
