package session

import (
	"context"
	"errors"
	"os"

	"github.com/pbaille/ods/internal/domain"
	"github.com/pbaille/ods/internal/ingest"
)

// Outcome names how an operation ended, for the journal
func Outcome(err error) string {
	var fe *ingest.FormatError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, domain.ErrInsufficientRecords):
		return "insufficient_records"
	case errors.Is(err, domain.ErrBusy):
		return "busy"
	case errors.Is(err, os.ErrNotExist):
		return "file_not_found"
	case errors.As(err, &fe):
		return "malformed_file"
	case errors.Is(err, domain.ErrServer):
		return "server_error"
	case errors.Is(err, domain.ErrProtocol):
		return "protocol_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}
