package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	enrollSucceededTotal atomic.Uint64
	enrollFailedTotal    atomic.Uint64

	verifySucceededTotal atomic.Uint64
	verifyFailedTotal    atomic.Uint64
	verifyErroredTotal   atomic.Uint64
	imagesSkippedTotal   atomic.Uint64

	verifyDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncEnroll counts an enrollment outcome.
func IncEnroll(success bool) {
	if success {
		enrollSucceededTotal.Add(1)
		return
	}
	enrollFailedTotal.Add(1)
}

// IncVerifySucceeded increments the verified counter.
func IncVerifySucceeded() {
	verifySucceededTotal.Add(1)
}

// IncVerifyFailed counts a verification that ran to a negative verdict.
func IncVerifyFailed() {
	verifyFailedTotal.Add(1)
}

// IncVerifyErrored counts a verification aborted by an upstream failure.
func IncVerifyErrored() {
	verifyErroredTotal.Add(1)
}

// IncImagesSkipped counts stored images skipped during verification.
func IncImagesSkipped(n int) {
	if n > 0 {
		imagesSkippedTotal.Add(uint64(n))
	}
}

// ObserveVerifyDurationMs records a verification duration in milliseconds.
func ObserveVerifyDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	verifyDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "face_enroll_succeeded_total", "Enrollments stored", enrollSucceededTotal.Load())
	writeCounter(&buf, "face_enroll_failed_total", "Enrollments rejected or failed", enrollFailedTotal.Load())
	writeCounter(&buf, "face_verify_succeeded_total", "Verifications accepted", verifySucceededTotal.Load())
	writeCounter(&buf, "face_verify_failed_total", "Verifications rejected", verifyFailedTotal.Load())
	writeCounter(&buf, "face_verify_errored_total", "Verifications aborted by upstream errors", verifyErroredTotal.Load())
	writeCounter(&buf, "face_images_skipped_total", "Stored images skipped during verification", imagesSkippedTotal.Load())
	writeHistogram(&buf, "face_verify_duration_ms", "Verification duration in milliseconds", verifyDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
