package sheets

import (
	"context"
	"errors"
	"fmt"
)

// Backend is the raw spreadsheet. Every method is one network round trip.
// Rows and columns are 1-based, row 1 is the header.
type Backend interface {
	ReadRows(ctx context.Context, table string) ([][]string, error)
	AppendRows(ctx context.Context, table string, rows [][]string) error
	UpdateCell(ctx context.Context, table string, row, col int, value string) error
	// DeleteRows removes all given rows in one structural edit.
	DeleteRows(ctx context.Context, table string, rows []int) error
	// EnsureTable creates the table with its header row when it is missing or empty.
	EnsureTable(ctx context.Context, table string, header []string) error
}

const (
	OpRead   = "read"
	OpAppend = "append"
	OpUpdate = "update"
	OpDelete = "delete"
	OpEnsure = "ensure"
)

// ErrPermanent marks backend failures another attempt cannot fix.
var ErrPermanent = errors.New("permanent backend error")

var ErrTableNotFound = fmt.Errorf("%w: table not found", ErrPermanent)
