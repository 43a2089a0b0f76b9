// file: internal/model/order.go
// version: 1.0.1
// guid: 1e2f3a4b-5c6d-7e8f-9a0b-1c2d3e4f5a6b

package model

import "log"

// SourceOrder names a merge-source-priority policy for a directory: which of
// the album-context record and the embedded-tag record wins when building a
// track's combined metadata.
type SourceOrder string

const (
	OrderAlbumOnly        SourceOrder = "album-only"
	OrderExtractedOnly    SourceOrder = "extracted-only"
	OrderAlbumThenExtract SourceOrder = "album-then-extracted"
	OrderExtractThenAlbum SourceOrder = "extracted-then-album"
)

// SourceOrders lists the valid policies in presentation order.
var SourceOrders = []SourceOrder{
	OrderAlbumOnly,
	OrderExtractedOnly,
	OrderAlbumThenExtract,
	OrderExtractThenAlbum,
}

// Valid reports whether o names a known policy.
func (o SourceOrder) Valid() bool {
	switch o {
	case OrderAlbumOnly, OrderExtractedOnly, OrderAlbumThenExtract, OrderExtractThenAlbum:
		return true
	}
	return false
}

// Normalize maps unrecognized policies to the album-then-extracted default,
// logging the fallback.
func (o SourceOrder) Normalize() SourceOrder {
	if o.Valid() {
		return o
	}
	log.Printf("[WARN] order: unrecognized source order %q, falling back to %q", string(o), string(OrderAlbumThenExtract))
	return OrderAlbumThenExtract
}

// Combine applies the policy to the album-derived and tag-derived records.
// The base record (path, duration, fingerprint) is merged in by the caller.
func (o SourceOrder) Combine(album, extracted TrackMetadata) (TrackMetadata, error) {
	switch o.Normalize() {
	case OrderAlbumOnly:
		return album, nil
	case OrderExtractedOnly:
		return extracted, nil
	case OrderExtractThenAlbum:
		return Merge(extracted, album, ValueSelf, ListMerge)
	default:
		return Merge(album, extracted, ValueSelf, ListMerge)
	}
}
