package locks

import "time"

// LockRecord describes a lock that was held on a document row. Returned by
// the cleanup sweep so the caller has a full audit of what was force-released.
type LockRecord struct {
	DocumentID   string    `dynamodbav:"document_id"` // PK
	LockedBy     string    `dynamodbav:"locked_by"`
	LockedAt     time.Time `dynamodbav:"-"`
	LockedAtUnix int64     `dynamodbav:"locked_at"`
}
