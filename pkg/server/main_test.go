package server

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestMain sets up package-level loggers once before any test runs, so
// goroutines left over from one test never race a later test swapping the
// loggers out.
func TestMain(m *testing.M) {
	errorLog = log.New(io.Discard, "ERROR: ", log.LstdFlags)
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)
	log.SetOutput(io.Discard)

	os.Exit(m.Run())
}
