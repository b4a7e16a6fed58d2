package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/profithive/profithive-go/internal/config"
)

func TestRuntimeMonitor_SampleLogsResourceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	m := NewRuntimeMonitor(config.MonitoringConfig{Enabled: true, IntervalSeconds: 300}, logger)
	m.sample(context.Background())

	out := buf.String()
	assert.Contains(t, out, "goroutines")
	assert.Contains(t, out, "heap_alloc_mb")
	assert.Contains(t, out, "Runtime resource sample")
}

func TestRuntimeMonitor_RunStopsOnCancel(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	m := &RuntimeMonitor{interval: 10 * time.Millisecond, logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after context cancellation")
	}
}
