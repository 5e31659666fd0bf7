package health_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/chrisdamba/excursiondesk/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		probes   []health.Probe
		expected string
	}{
		{
			name:     "No probes",
			expected: health.StatusHealthy,
		},
		{
			name:     "All probes pass",
			probes:   []health.Probe{{Name: "session", Check: ok}, {Name: "redis", Check: ok}},
			expected: health.StatusHealthy,
		},
		{
			name:     "One probe fails",
			probes:   []health.Probe{{Name: "session", Check: ok}, {Name: "postgres", Check: failing}},
			expected: health.StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := health.Collect(context.Background(), "https://office.example.com/api/sales", tt.probes...)

			assert.Equal(t, tt.expected, report.Status)
			assert.Len(t, report.Checks, len(tt.probes))
			assert.NotEmpty(t, report.GoVersion)
			_, err := time.Parse(time.RFC3339, report.Timestamp)
			assert.NoError(t, err)
		})
	}
}

func TestReportWrite(t *testing.T) {
	report := health.Collect(context.Background(), "https://office.example.com/api/sales",
		health.Probe{Name: "session", Check: func(context.Context) error { return errors.New("not authenticated") }})

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))

	var decoded health.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.False(t, decoded.Healthy())
	assert.Equal(t, "https://office.example.com/api/sales", decoded.Backend)
	require.Len(t, decoded.Checks, 1)
	assert.Equal(t, "not authenticated", decoded.Checks[0].Error)
}
