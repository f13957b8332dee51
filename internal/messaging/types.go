// Package messaging holds the transport-neutral types shared by the broker
// client and the event handlers built on top of it.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Envelope is one inbound message as seen by a handler.
type Envelope struct {
	RoutingKey  string
	Body        []byte
	RequestID   string
	Timestamp   time.Time
	DeliveryTag uint64
	Redelivered bool
}

// Result tells the dispatch loop which broker action to take.
type Result int

const (
	Ack Result = iota
	Requeue
	DeadLetter
)

func (r Result) String() string {
	switch r {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case DeadLetter:
		return "dead_letter"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Handler processes a single message. It never acks itself.
type Handler func(ctx context.Context, env Envelope) Result

//go:generate mockgen -source types.go -destination mock_types.go -package messaging

// Publisher emits events to the bus. requestID may be empty, in which case
// the implementation resolves one from the payload or the context.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any, requestID string) error
}

const (
	FieldRequestID = "requestId"
	FieldTimestamp = "timestamp"
)

var ErrPayloadNotObject = errors.New("payload must encode to a JSON object")

// Stamp encodes payload and merges requestId and timestamp into it.
// requestId precedence: requestID, then the payload's own requestId,
// then fallbackID. The resolved id is returned alongside the body.
func Stamp(payload any, requestID, fallbackID string, now time.Time) ([]byte, string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal payload: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, "", ErrPayloadNotObject
	}

	if requestID == "" {
		requestID = RequestIDFromBody(raw)
	}
	if requestID == "" {
		requestID = fallbackID
	}

	fields[FieldRequestID], _ = json.Marshal(requestID)
	fields[FieldTimestamp], _ = json.Marshal(now.UTC().Format(time.RFC3339))

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, "", fmt.Errorf("marshal stamped payload: %w", err)
	}
	return body, requestID, nil
}

// RequestIDFromBody returns the top-level requestId string of a JSON
// object, or "" when absent or the body is not an object.
func RequestIDFromBody(body []byte) string {
	var head struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return ""
	}
	return head.RequestID
}
