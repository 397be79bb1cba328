package settlement

import "context"

// Settlement kinds reported to a Recorder
const (
	KindPurchase     = "purchase"
	KindDayEndReport = "day_end_report"
	KindReconcile    = "reconciliation"
)

// Recorder observes the outcome of every settlement write.
// err is nil for a committed settlement.
type Recorder interface {
	RecordSettlement(ctx context.Context, kind, operation string, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordSettlement(context.Context, string, string, error) {}
