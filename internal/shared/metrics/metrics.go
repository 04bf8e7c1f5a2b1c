package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	artworksProcessedTotal      atomic.Uint64
	artworksFailedTotal         atomic.Uint64
	storyFallbackTotal          atomic.Uint64
	illustrationsGeneratedTotal atomic.Uint64
	illustrationsMissingTotal   atomic.Uint64

	pipelineDuration = newHistogram([]float64{1000, 5000, 10000, 30000, 60000, 120000, 300000, 600000})
)

// IncArtworkProcessed increments the processed counter.
func IncArtworkProcessed() {
	artworksProcessedTotal.Add(1)
}

// IncArtworkFailed increments the failed counter.
func IncArtworkFailed() {
	artworksFailedTotal.Add(1)
}

// IncStoryFallback counts stories replaced by the deterministic fallback.
func IncStoryFallback() {
	storyFallbackTotal.Add(1)
}

// IncIllustrationGenerated counts sections that received an image.
func IncIllustrationGenerated() {
	illustrationsGeneratedTotal.Add(1)
}

// IncIllustrationMissing counts sections left without an image.
func IncIllustrationMissing() {
	illustrationsMissingTotal.Add(1)
}

// ObservePipelineDurationMs records a pipeline duration in milliseconds.
func ObservePipelineDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	pipelineDuration.Observe(value)
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
	writeCounter(&buf, "artworks_processed_total", "Total artworks run through the pipeline", artworksProcessedTotal.Load())
	writeCounter(&buf, "artworks_failed_total", "Total artwork pipelines that failed", artworksFailedTotal.Load())
	writeCounter(&buf, "story_fallback_total", "Total stories replaced by the fallback story", storyFallbackTotal.Load())
	writeCounter(&buf, "illustrations_generated_total", "Total story sections illustrated", illustrationsGeneratedTotal.Load())
	writeCounter(&buf, "illustrations_missing_total", "Total story sections left without an illustration", illustrationsMissingTotal.Load())
	writeHistogram(&buf, "pipeline_duration_ms", "Artwork pipeline duration in milliseconds", pipelineDuration.Snapshot())
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

// Observe places value in the first bucket whose upper bound admits it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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
