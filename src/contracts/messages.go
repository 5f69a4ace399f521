// Package contracts defines the names shared by the gateway and the consumers.
package contracts

// TopicNames defines the Kafka topics every accepted payload is mirrored onto.
const (
	// TopicBatch is drained by the batch consumer (up to MaxBatchSize records per poll).
	TopicBatch = "batch-topic"

	// TopicRecord is drained by the record consumer (one record per poll).
	TopicRecord = "record-topic"
)

// ConsumerGroup is the group id used by both consumers. Offsets are tracked
// independently per topic.
const ConsumerGroup = "sample-consumer"

// DefaultMaxBatchSize bounds the number of records returned by one batch poll.
const DefaultMaxBatchSize = 10

// TranIDField is the reserved payload field holding the transaction id.
const TranIDField = "api_tran_id"

// KeyField is the payload field used as partition key on the keyed endpoint.
const KeyField = "key"

// MirrorTopics returns the fan-out targets in publish order.
func MirrorTopics() []string {
	return []string{TopicBatch, TopicRecord}
}

// Receipt acknowledges an accepted ingestion request.
type Receipt struct {
	// Transaction id embedded into the published body.
	TranID string `json:"api_tran_id"`
	// Partition key, empty on the unkeyed path.
	Key string `json:"key,omitempty"`
	// Whether Key was supplied (an empty string is still a key).
	Keyed bool `json:"keyed"`
}
