package core

type (
	// MetricsCollector is implemented by the prometheus service; services call
	// it on the hot paths they want observed.
	MetricsCollector interface {
		RequestCreated()
		ScoringFallback()
		RequestDisposed(status string)
	}

	// NopMetrics discards all observations; used in tests and the admin CLI.
	NopMetrics struct{}
)

var _ MetricsCollector = (*NopMetrics)(nil)

func (NopMetrics) RequestCreated()               {}
func (NopMetrics) ScoringFallback()              {}
func (NopMetrics) RequestDisposed(status string) {}
