package ingest

import "sync/atomic"

// Metrics tracks pipeline statistics across the subscriber and processor.
// Counters are monotonic; the operational layer consumes snapshots.
type Metrics struct {
	// Received is the total number of bus messages received
	Received atomic.Int64

	// DecodeErrors is the number of messages dropped as undecodable
	DecodeErrors atomic.Int64

	// Processed is the number of events whose writes committed
	Processed atomic.Int64

	// Rejected is the number of events dropped for missing identity
	Rejected atomic.Int64

	// Failed is the number of events that hit a transient store error
	Failed atomic.Int64

	// Duplicates is the number of messages skipped by the dedupe guard
	Duplicates atomic.Int64
}

// Stats is a point-in-time snapshot of pipeline metrics
type Stats struct {
	Received     int64 `json:"received"`
	DecodeErrors int64 `json:"decode_errors"`
	Processed    int64 `json:"processed"`
	Rejected     int64 `json:"rejected"`
	Failed       int64 `json:"failed"`
	Duplicates   int64 `json:"duplicates"`
}

// Snapshot returns the current counter values
func (m *Metrics) Snapshot() Stats {
	return Stats{
		Received:     m.Received.Load(),
		DecodeErrors: m.DecodeErrors.Load(),
		Processed:    m.Processed.Load(),
		Rejected:     m.Rejected.Load(),
		Failed:       m.Failed.Load(),
		Duplicates:   m.Duplicates.Load(),
	}
}

// Record bumps the counter matching an outcome
func (m *Metrics) Record(outcome Outcome) {
	switch outcome {
	case OutcomeProcessed:
		m.Processed.Add(1)
	case OutcomeRejected:
		m.Rejected.Add(1)
	case OutcomeFailed:
		m.Failed.Add(1)
	case OutcomeDuplicate:
		m.Duplicates.Add(1)
	}
}
