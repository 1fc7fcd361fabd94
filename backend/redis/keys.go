package redis

// Redis key naming conventions for queue data.
// All keys are prefixed with "intake:" to avoid collisions. Queues are
// identified by their full queue URL.

const keyPrefix = "intake:"

// readyKey returns the List key of messages awaiting delivery:
// intake:ready:{queueURL}
func readyKey(queueURL string) string { return keyPrefix + "ready:" + queueURL }

// msgKey returns the Hash key holding one message body:
// intake:msg:{queueURL}:{id}
func msgKey(queueURL, id string) string { return keyPrefix + "msg:" + queueURL + ":" + id }

// inflightKey returns the Sorted Set key of outstanding deliveries,
// scored by visibility deadline (unix millis): intake:inflight:{queueURL}
func inflightKey(queueURL string) string { return keyPrefix + "inflight:" + queueURL }

// receiptsKey returns the Hash key mapping receipt handles to message
// IDs: intake:receipts:{queueURL}
func receiptsKey(queueURL string) string { return keyPrefix + "receipts:" + queueURL }
