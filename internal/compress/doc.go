// Package compress implements the per-page block compression used by spill
// channels. Every codec shares one fixed 8-byte little-endian framing so a
// reader can validate declared lengths before touching the payload.
package compress
