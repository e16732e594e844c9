package postgres

import (
	"io"

	"github.com/rs/zerolog"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
