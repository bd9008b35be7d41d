package metrics

import (
	"context"
	"time"
)

// Recorder stores sensor samples and power transitions observed by the node.
type Recorder interface {
	RecordSample(ctx context.Context, rec *SampleRecord) error
	RecordTransition(ctx context.Context, rec *TransitionRecord) error
	// FlushDue writes buffered records when the batch timeout has passed.
	FlushDue(now time.Time) error
	Flush() error
	Close() error
	Enabled() bool
}

// Repository is the storage behind an enabled Recorder.
type Repository interface {
	AddSample(rec *SampleRecord) error
	AddTransition(rec *TransitionRecord) error
	FlushDue(now time.Time) error
	Flush() error
	Close() error
}

// SampleRecord is one successful sensor reading.
type SampleRecord struct {
	Tick       uint32
	Value      float64
	Mode       string
	RecordedAt time.Time
}

// TransitionRecord is one applied power mode change.
type TransitionRecord struct {
	Tick       uint32
	From       string
	To         string
	RecordedAt time.Time
}
