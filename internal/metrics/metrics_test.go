// file: internal/metrics/metrics_test.go
// version: 1.1.0
// guid: 7a8b9c0d-1e2f-3a4b-5c6d-7e8f9a0b1c2d

package metrics

import (
	"testing"
	"time"
)

func TestIncFileProcessed(t *testing.T) {
	IncFileProcessed("resolved")
	IncFileProcessed("invalid")
}

func TestIncOracleCall(t *testing.T) {
	IncOracleCall("album_naming")
	IncOracleCall("merge_policy")
	IncOracleCall("candidate")
}

func TestLookupCounters(t *testing.T) {
	IncLookup()
	IncLookupFailure()
}

func TestObserveResolveDuration(t *testing.T) {
	ObserveResolveDuration(100 * time.Millisecond)
}

func TestGauges(t *testing.T) {
	SetSongs(42)
	SetAlbums(5)
	SetFailedFiles(2)
}

func TestRegisterIdempotent(t *testing.T) {
	Register()
	Register()
}
