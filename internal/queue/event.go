// Package queue defines message payloads exchanged over the message
// broker and the background consumer that drains them.
package queue

// IntentQueueName is the durable queue notification intents are
// published to. The delivery collaborator (mailer, in-app feed) consumes
// from it; the engine never formats or sends the final message.
const IntentQueueName = "notification.intents"

// NotificationIntent is published once per (subscriber, event) pair
// that survived preference gating and the dedup suppression window. It
// carries enough for a downstream renderer to build the outgoing
// message without querying the engine back.
type NotificationIntent struct {
	AgencyID    uint64 `json:"agency_id"`
	CircuitID   uint64 `json:"circuit_id"`
	DepartureID uint64 `json:"departure_id"`
	EventKind   string `json:"event_kind"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
	DedupKey    string `json:"dedup_key"`
	CreatedAt   string `json:"created_at"`
}
