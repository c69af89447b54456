// Command determinism_check replays a timetable generation request against a
// running instance and verifies every run returns the same schedule. Identical
// catalog plus identical request must produce identical output, so any diff
// between runs points at nondeterminism in the placement engine.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type run struct {
	Status   int
	Body     []byte
	Duration time.Duration
}

func main() {
	var (
		base        string
		payloadPath string
		token       string
		runs        int
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&payloadPath, "payload", "scripts/determinism_check/payload.json", "Path to generation request JSON")
	flag.StringVar(&token, "token", "", "Bearer token for the generate endpoint")
	flag.IntVar(&runs, "runs", 5, "Number of repeated generation calls")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		log.Fatalf("failed to read payload: %v", err)
	}
	if !json.Valid(payload) {
		log.Fatalf("payload %s is not valid JSON", payloadPath)
	}

	client := &http.Client{Timeout: timeout}
	url := strings.TrimRight(base, "/") + "/timetable/generate"

	var first *run
	diffs := 0
	for i := 0; i < runs; i++ {
		r, err := generate(client, url, token, payload)
		if err != nil {
			log.Fatalf("run %d failed: %v", i+1, err)
		}
		fmt.Printf("run %d: status=%d duration=%s\n", i+1, r.Status, r.Duration.Round(time.Millisecond))
		if first == nil {
			first = r
			continue
		}
		if r.Status != first.Status || !bodiesEqual(r.Body, first.Body) {
			diffs++
			fmt.Printf("run %d diverged from run 1\n", i+1)
		}
	}

	if diffs > 0 {
		fmt.Printf("nondeterministic: %d of %d runs diverged\n", diffs, runs)
		os.Exit(1)
	}
	fmt.Printf("deterministic across %d runs\n", runs)
}

func generate(client *http.Client, url, token string, payload []byte) (*run, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &run{Status: resp.StatusCode, Body: body, Duration: time.Since(start)}, nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	return reflect.DeepEqual(aj, bj)
}
