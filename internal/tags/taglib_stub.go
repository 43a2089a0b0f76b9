// file: internal/tags/taglib_stub.go
// version: 1.1.0
// guid: 3e4f5a6b-7c8d-9e0f-1a2b-3c4d5e6f7a8b

//go:build !taglib

package tags

import (
	"github.com/tunevault/tunevault/internal/model"
)

// taglibAvailable false when not built with taglib
var taglibAvailable = false

// WriteBack stub when taglib not compiled in.
func WriteBack(path string, meta model.TrackMetadata) error {
	return ErrTaglibUnavailable
}
