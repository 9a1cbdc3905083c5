package observability

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	t.Run("NewMetrics", func(t *testing.T) {
		if m == nil {
			t.Fatal("NewMetrics returned nil")
		}
		if m.RequestsTotal == nil {
			t.Error("RequestsTotal not initialized")
		}
		if m.RequestDuration == nil {
			t.Error("RequestDuration not initialized")
		}
		if m.PointsClassified == nil {
			t.Error("PointsClassified not initialized")
		}
		if m.RegionsEnumerated == nil {
			t.Error("RegionsEnumerated not initialized")
		}
		if m.PointLatency == nil {
			t.Error("PointLatency not initialized")
		}
		if m.HeapSize == nil {
			t.Error("HeapSize not initialized")
		}
		if m.RafAbsFallbackTotal == nil {
			t.Error("RafAbsFallbackTotal not initialized")
		}
	})

	t.Run("RecordRequest", func(t *testing.T) {
		duration := 100 * time.Millisecond
		m.RecordRequest("POST /v1/runs", "success", duration)
		m.RecordRequest("GET /v1/runs/{id}", "error", 50*time.Millisecond)

		for _, method := range []string{"POST /v1/runs", "GET /v1/health"} {
			for _, status := range []string{"success", "error"} {
				m.RecordRequest(method, status, duration)
			}
		}
	})

	t.Run("RecordError", func(t *testing.T) {
		m.RecordError("POST /v1/runs", "validation_error")
		m.RecordError("GET /v1/runs/{id}", "not_found")
	})

	t.Run("RecordPoint", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			m.RecordPoint("stable")
		}
		m.RecordPoint("unstable")
		m.RecordPoint("skipped")
	})

	t.Run("RecordRegions", func(t *testing.T) {
		m.RecordRegions(1)
		m.RecordRegions(6)
	})

	t.Run("RecordPointLatency", func(t *testing.T) {
		m.RecordPointLatency("interval", 2*time.Millisecond)
		m.RecordPointLatency("raf", 3*time.Millisecond)
	})

	t.Run("RecordHeapSize", func(t *testing.T) {
		m.RecordHeapSize(4)
		m.RecordHeapSize(10000)
	})

	t.Run("UpdateSummaryGauges", func(t *testing.T) {
		m.UpdateSummaryGauges("1", 8, 7)
		m.UpdateSummaryGauges("3", 5, 5)
	})

	t.Run("RecordRafAbsFallback", func(t *testing.T) {
		m.RecordRafAbsFallback(1)
		m.RecordRafAbsFallback(3)
	})

	t.Run("SystemMetrics", func(t *testing.T) {
		m.UpdateGoroutineCount(42)
		m.UpdateMemoryUsage(1024 * 1024)
	})
}
