package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered       uint64
	LoginsSucceeded       uint64
	LoginsFailed          uint64
	ImagesUploaded        uint64
	ImagesDeleted         uint64
	UploadsRejected       map[string]uint64
	UploadDurationCount   uint64
	UploadDurationTotalNs int64
	UploadBytesTotal      int64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	usersRegistered       uint64
	loginsSucceeded       uint64
	loginsFailed          uint64
	imagesUploaded        uint64
	imagesDeleted         uint64
	rejectedType          uint64
	rejectedSize          uint64
	rejectedRateLimit     uint64
	rejectedOther         uint64
	uploadDurationCount   uint64
	uploadDurationTotalNs int64
	uploadBytesTotal      int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered: atomic.LoadUint64(&m.usersRegistered),
		LoginsSucceeded: atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:    atomic.LoadUint64(&m.loginsFailed),
		ImagesUploaded:  atomic.LoadUint64(&m.imagesUploaded),
		ImagesDeleted:   atomic.LoadUint64(&m.imagesDeleted),
		UploadsRejected: map[string]uint64{
			"type":       atomic.LoadUint64(&m.rejectedType),
			"size":       atomic.LoadUint64(&m.rejectedSize),
			"rate_limit": atomic.LoadUint64(&m.rejectedRateLimit),
			"other":      atomic.LoadUint64(&m.rejectedOther),
		},
		UploadDurationCount:   atomic.LoadUint64(&m.uploadDurationCount),
		UploadDurationTotalNs: atomic.LoadInt64(&m.uploadDurationTotalNs),
		UploadBytesTotal:      atomic.LoadInt64(&m.uploadBytesTotal),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncImageUploaded increments the upload counter.
func (m *InMemoryRecorder) IncImageUploaded() {
	atomic.AddUint64(&m.imagesUploaded, 1)
}

// IncImageDeleted increments the delete counter.
func (m *InMemoryRecorder) IncImageDeleted() {
	atomic.AddUint64(&m.imagesDeleted, 1)
}

// IncUploadRejected increments the rejection counter for reason.
func (m *InMemoryRecorder) IncUploadRejected(reason string) {
	switch reason {
	case "type":
		atomic.AddUint64(&m.rejectedType, 1)
	case "size":
		atomic.AddUint64(&m.rejectedSize, 1)
	case "rate_limit":
		atomic.AddUint64(&m.rejectedRateLimit, 1)
	default:
		atomic.AddUint64(&m.rejectedOther, 1)
	}
}

// ObserveUploadDuration records how long an upload took end to end.
func (m *InMemoryRecorder) ObserveUploadDuration(duration time.Duration) {
	atomic.AddUint64(&m.uploadDurationCount, 1)
	atomic.AddInt64(&m.uploadDurationTotalNs, duration.Nanoseconds())
}

// ObserveUploadBytes adds size to the uploaded byte total.
func (m *InMemoryRecorder) ObserveUploadBytes(size int64) {
	atomic.AddInt64(&m.uploadBytesTotal, size)
}
