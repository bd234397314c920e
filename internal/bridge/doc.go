// Package bridge connects the coordinator and the feed to the message
// broker.
//
// The consume side turns each subscription-change delivery into a
// pending subscription whose success/failure callbacks map to the
// broker's ack/nack primitives. The publish side sends price ticks on a
// symbol-keyed route and error events on a fixed route. Topology
// declaration (exchange, queues, dead-letter pair) also lives here.
package bridge
