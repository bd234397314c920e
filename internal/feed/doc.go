// Package feed implements the exchange feed connection.
//
// The feed connection:
//   - Owns one WebSocket session to the exchange
//   - Connects with exponential backoff up to a configured attempt limit
//   - Decodes inbound frames into price ticks or error events
//   - Multicasts events to subscribers with best-effort delivery
//   - Exposes Send for outbound subscription control frames
//
// Reconnection after a drop is a policy decision for the owner of the
// client; the feed only exposes its connection state.
package feed
