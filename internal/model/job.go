package model

import "time"

const (
	JobReembed      = "reembed"
	JobExtractOffer = "extract_offer"
)

// DocumentJob is a unit of background work on one document, carried as the
// JSON body of a queue message.
type DocumentJob struct {
	Kind       string    `json:"kind"`
	DocumentID uint      `json:"document_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
