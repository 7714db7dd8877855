package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncUserRegistered()                  {}
func (n *NoopRecorder) IncLogin(string)                     {}
func (n *NoopRecorder) IncImageUploaded()                   {}
func (n *NoopRecorder) IncImageDeleted()                    {}
func (n *NoopRecorder) IncUploadRejected(string)            {}
func (n *NoopRecorder) ObserveUploadDuration(time.Duration) {}
func (n *NoopRecorder) ObserveUploadBytes(int64)            {}
