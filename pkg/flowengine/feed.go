package flowengine

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// RowBatchCallback receives decoded movement rows from the live feed. The
// callback runs on the feed goroutine; implementations must hand the rows
// off to the display loop rather than mutating session state directly.
type RowBatchCallback func(rows []RowRecord)

// SeenStore deduplicates feed records across reconnects and restarts.
type SeenStore interface {
	Seen(key string) (bool, error)
	MarkSeen(key string) error
}

// FlowFeed subscribes to a websocket stream of movement records and pushes
// decoded batches to its callback. Connection loss triggers exponential
// backoff capped at one minute.
type FlowFeed struct {
	url    string
	onRows RowBatchCallback
	seen   SeenStore // optional
}

func NewFlowFeed(url string, seen SeenStore, onRows RowBatchCallback) *FlowFeed {
	return &FlowFeed{url: url, onRows: onRows, seen: seen}
}

type feedMessage struct {
	Type string `json:"type"`
	Data struct {
		Records []map[string]string `json:"records"`
	} `json:"data"`
}

// decodeFeedMessage parses one wire message into movement rows. Messages of
// other types, or with no records, yield an empty slice.
func decodeFeedMessage(payload []byte) ([]RowRecord, error) {
	var msg feedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	if msg.Type != "movement_batch" {
		return nil, nil
	}
	rows := make([]RowRecord, 0, len(msg.Data.Records))
	for _, rec := range msg.Data.Records {
		rows = append(rows, RowRecord(rec))
	}
	return rows, nil
}

// recordKey identifies a feed record for deduplication.
func recordKey(row RowRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		row[FieldCountryFrom], row[FieldCountryTo], row[FieldMovementCount],
		row[FieldLongitudeFrom], row[FieldLatitudeFrom])
}

// Listen connects and consumes the feed until the process exits. Run it on
// its own goroutine.
func (f *FlowFeed) Listen() {
	backoff := 1 * time.Second
	for {
		log.Printf("Connecting to movement feed: %s", f.url)
		c, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			log.Printf("Dial error: %v. Retrying in %v...", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
			continue
		}
		backoff = 1 * time.Second

		for {
			_, payload, err := c.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v. Reconnecting...", err)
				break
			}
			rows, err := decodeFeedMessage(payload)
			if err != nil {
				continue
			}
			if rows = f.filterSeen(rows); len(rows) > 0 {
				f.onRows(rows)
			}
		}
		if err := c.Close(); err != nil {
			log.Printf("Error closing feed connection: %v", err)
		}
		time.Sleep(time.Second)
	}
}

func (f *FlowFeed) filterSeen(rows []RowRecord) []RowRecord {
	if f.seen == nil {
		return rows
	}
	fresh := rows[:0]
	for _, row := range rows {
		key := recordKey(row)
		seen, err := f.seen.Seen(key)
		if err != nil {
			log.Printf("Seen-store lookup failed: %v", err)
			fresh = append(fresh, row)
			continue
		}
		if seen {
			continue
		}
		if err := f.seen.MarkSeen(key); err != nil {
			log.Printf("Seen-store write failed: %v", err)
		}
		fresh = append(fresh, row)
	}
	return fresh
}
