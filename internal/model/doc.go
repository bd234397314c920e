// Package model defines the domain values shared across the price bridge.
//
// Conventions:
//   - Prices: shopspring decimal, parsed from the exchange's string form
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Symbols: upper-case base symbol (e.g., "BTC"); never blank
package model
