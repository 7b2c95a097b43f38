package store

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fitLadderAPI/internal/ladder"
)

// UsersCollection is where ladder documents live.
const UsersCollection = "users"

var ErrNotFound = errors.New("document not found")

// RemoteStore is the shared document store holding every user's ladder
// document.
type RemoteStore interface {
	// QueryTop returns up to limit documents ordered by field, highest first.
	QueryTop(ctx context.Context, field string, limit int) ([]*ladder.Record, error)
	Get(ctx context.Context, id string) (*ladder.Record, error)
	// Merge writes fields onto the document, creating it if needed. Nil
	// values clear the field.
	Merge(ctx context.Context, id string, fields map[string]any) error
	Close() error
}

// IsTransient reports whether a store error is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return true
		}
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
