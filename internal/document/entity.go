// AngelaMos | 2026
// entity.go

package document

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a document may move from s to next.
// processing -> pending is the requeue path for stalled work.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusPending
	default:
		return false
	}
}

type Document struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Filename      string    `db:"filename"`
	ObjectKey     string    `db:"object_key"`
	Status        Status    `db:"status"`
	WordCount     int       `db:"word_count"`
	ExtractedText *string   `db:"extracted_text"`
	ErrorMessage  *string   `db:"error_message"`
	UploadDate    time.Time `db:"upload_date"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// ObjectKey is where a document's PDF lives in the blob store.
func ObjectKey(userID, documentID string) string {
	return fmt.Sprintf("%s/%s.pdf", userID, documentID)
}
