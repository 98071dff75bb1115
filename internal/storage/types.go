package storage

import "time"

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// User is a bot user; every registered user is a broadcast recipient.
type User struct {
	ID        int64
	Username  string
	FirstName string
	Language  string
}

// Broadcast record status values.
const (
	BroadcastInProgress = "in_progress"
	BroadcastCompleted  = "completed"
)

// BroadcastRecord is the append-only audit entry for one broadcast run.
// Counters are updated via atomic increments while the run is in progress.
type BroadcastRecord struct {
	ID          int64
	AdminID     int64
	TotalUsers  int
	Success     int
	Failed      int
	Blocked     int
	Status      string
	CreatedAt   time.Time
	CompletedAt time.Time // zero until completed
}
