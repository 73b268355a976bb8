package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"
)

// volatileFields change on every build and are ignored when comparing.
var volatileFields = []string{"generatedAt"}

type target struct {
	StudentID int64  `json:"studentId"`
	Variant   string `json:"variant"`
	Critical  bool   `json:"critical"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

type deployment struct {
	base    string
	token   string
	profile string
}

type comparison struct {
	Target          target
	CandidateStatus int
	CurrentStatus   int
	Sections        []string
	Error           error
	CandidateTook   time.Duration
	CurrentTook     time.Duration
}

func (c comparison) matches() bool {
	return c.Error == nil && c.CandidateStatus == c.CurrentStatus && len(c.Sections) == 0
}

func main() {
	var (
		candidateBase string
		currentBase   string
		targetsPath   string
		timeout       time.Duration
	)

	flag.StringVar(&candidateBase, "candidate", "http://localhost:8080/api/v1", "Gateway under test")
	flag.StringVar(&currentBase, "current", "http://localhost:8081/api/v1", "Gateway currently serving traffic")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "report_compare", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	token := os.Getenv("PORTAL_TOKEN")
	profile := os.Getenv("PORTAL_PROFILE")
	candidate := deployment{base: candidateBase, token: token, profile: profile}
	current := deployment{base: currentBase, token: token, profile: profile}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons []comparison
		breaking    int
		optional    int
	)
	for _, t := range targets {
		comp := compareTarget(client, candidate, current, t)
		if !comp.matches() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(os.Stdout, comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func reportPath(t target) string {
	path := fmt.Sprintf("/reports/students/%d", t.StudentID)
	if t.Variant != "" {
		path += "?variant=" + t.Variant
	}
	return path
}

func compareTarget(client *http.Client, candidate, current deployment, t target) comparison {
	comp := comparison{Target: t}

	candidateBody, candidateStatus, took, err := fetchReport(client, candidate, t)
	comp.CandidateTook = took
	if err != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", err)
		return comp
	}
	currentBody, currentStatus, took, err := fetchReport(client, current, t)
	comp.CurrentTook = took
	if err != nil {
		comp.Error = fmt.Errorf("current request failed: %w", err)
		return comp
	}

	comp.CandidateStatus = candidateStatus
	comp.CurrentStatus = currentStatus
	comp.Sections, comp.Error = diffSections(candidateBody, currentBody)
	return comp
}

func fetchReport(client *http.Client, d deployment, t target) ([]byte, int, time.Duration, error) {
	if client == nil {
		return nil, 0, 0, errors.New("nil client")
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(d.base, "/")+reportPath(t), nil)
	if err != nil {
		return nil, 0, 0, err
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}
	if d.profile != "" {
		req.Header.Set("X-User-Profile", d.profile)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, time.Since(start), fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, time.Since(start), nil
}

// diffSections decodes both envelopes and returns the names of the report
// fields whose contents differ, sorted.
func diffSections(a, b []byte) ([]string, error) {
	left, err := decodeReport(a)
	if err != nil {
		return nil, fmt.Errorf("decode candidate body: %w", err)
	}
	right, err := decodeReport(b)
	if err != nil {
		return nil, fmt.Errorf("decode current body: %w", err)
	}

	keys := make(map[string]struct{}, len(left)+len(right))
	for k := range left {
		keys[k] = struct{}{}
	}
	for k := range right {
		keys[k] = struct{}{}
	}
	var diff []string
	for k := range keys {
		if !reflect.DeepEqual(left[k], right[k]) {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff, nil
}

func decodeReport(body []byte) (map[string]interface{}, error) {
	var envelope map[string]interface{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	report, ok := envelope["data"].(map[string]interface{})
	if !ok {
		// Error envelopes are compared whole.
		return envelope, nil
	}
	for _, field := range volatileFields {
		delete(report, field)
	}
	return report, nil
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Report Compare")
	fmt.Fprintln(w, "==============")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.matches() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s\n", status, reportPath(res.Target))
		fmt.Fprintf(w, "  Candidate: %d (%s)\n", res.CandidateStatus, res.CandidateTook)
		fmt.Fprintf(w, "  Current:   %d (%s)\n", res.CurrentStatus, res.CurrentTook)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
			continue
		}
		if len(res.Sections) > 0 {
			fmt.Fprintf(w, "  Differing: %s | Critical: %t\n", strings.Join(res.Sections, ", "), res.Target.Critical)
		}
	}
}
