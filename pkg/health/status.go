package health

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"time"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Probe checks one dependency of the console. A nil error means healthy.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type CheckResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Report struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Backend   string        `json:"backend,omitempty"`
	Uptime    string        `json:"uptime"`
	GoVersion string        `json:"go_version"`
	Checks    []CheckResult `json:"checks"`
	Memory    struct {
		Alloc uint64 `json:"alloc"`
		Sys   uint64 `json:"sys"`
		NumGC uint32 `json:"numGC"`
	} `json:"memory"`
}

var startTime = time.Now()

// Version is stamped at build time.
var Version = "dev"

// Collect runs every probe in order and reports degraded if any fails.
func Collect(ctx context.Context, backend string, probes ...Probe) Report {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		Backend:   backend,
		Uptime:    time.Since(startTime).String(),
		GoVersion: runtime.Version(),
		Checks:    make([]CheckResult, 0, len(probes)),
	}
	report.Memory.Alloc = memStats.Alloc
	report.Memory.Sys = memStats.Sys
	report.Memory.NumGC = memStats.NumGC

	for _, p := range probes {
		res := CheckResult{Name: p.Name, OK: true}
		if err := p.Check(ctx); err != nil {
			res.OK = false
			res.Error = err.Error()
			report.Status = StatusDegraded
		}
		report.Checks = append(report.Checks, res)
	}
	return report
}

func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

func (r Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
