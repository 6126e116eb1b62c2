package relay

import (
	"time"

	"github.com/google/uuid"
)

// Record is an envelope as stored by the relay. Seq increases by one for
// every record appended to a topic, starting at 1.
type Record struct {
	ID       uuid.UUID `json:"id"`
	Topic    string    `json:"topic"`
	Seq      int64     `json:"seq"`
	Received time.Time `json:"received"`
	Payload  []byte    `json:"payload"`
}

// PublishResponse tells the publisher where its envelope landed.
type PublishResponse struct {
	ID  uuid.UUID `json:"id"`
	Seq int64     `json:"seq"`
}

// Feed is a page of records. Pending counts the records held after the
// last one in the page; zero means the subscriber has caught up.
type Feed struct {
	Records []Record `json:"records"`
	Pending int      `json:"pending"`
}

// Next returns the cursor to pass as after for the following page.
func (f *Feed) Next(after int64) int64 {
	if n := len(f.Records); n > 0 {
		return f.Records[n-1].Seq
	}
	return after
}
