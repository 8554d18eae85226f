// Package export defines the outbound ports for the external ledger the
// treasurer keeps alongside the app.
package export

import (
	"context"

	"cassa/internal/core"
)

// LedgerWriter appends one payment to the external ledger and returns a
// reference to the written row.
type LedgerWriter interface {
	Append(ctx context.Context, p core.Payment) (rowRef string, err error)
}
