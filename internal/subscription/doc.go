// Package subscription decides whether an inbound subscription-change
// request needs any feed interaction at all.
//
// The coordinator reads the persisted subscription set, skips requests
// whose desired state already holds, dispatches the rest through the
// throttler, and couples the persistence write to the success callback
// so the stored set only ever reflects confirmed feed state.
package subscription
