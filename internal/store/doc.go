// Package store persists the subscription set: one row per currently
// subscribed symbol, keyed by symbol. The subscription coordinator is
// the only writer.
package store
