package ports

import "time"

// Pipeline halves as reported to metrics
const (
	HalfKeywords = "keywords"
	HalfLinks    = "links"
)

// Half outcomes as reported to metrics
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// PipelineMetrics records what the content pipeline did
type PipelineMetrics interface {
	RecordExtraction(keywords, links, droppedSubtrees int)
	RecordHalf(half, outcome string, duration time.Duration)
}

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) RecordExtraction(int, int, int)           {}
func (NopMetrics) RecordHalf(string, string, time.Duration) {}
