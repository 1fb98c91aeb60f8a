package lanecsv

// Observer receives reader events. Implementations must be cheap; they run on
// the reading goroutine. See the metrics package for a Prometheus one.
type Observer interface {
	// Refill is called after each Source read with the window size.
	Refill(window int, final bool)
	// BufferGrown is called when a stream window doubles.
	BufferGrown(size int)
	// RecordRead is called for every record handed to the caller.
	RecordRead(fields, tokens int)
	// RecordSkipped is called when an error handler chose Skip.
	RecordSkipped(kind string)
	// Fault is called once when the reader stops on an error.
	Fault(kind string)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Refill(int, bool) {}
func (NopObserver) BufferGrown(int) {}
func (NopObserver) RecordRead(int, int) {}
func (NopObserver) RecordSkipped(string) {}
func (NopObserver) Fault(string) {}
