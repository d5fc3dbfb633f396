package sheets

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryBackend keeps tables in memory. It records calls per operation and
// can be told to fail, which makes it the backend of choice in tests.
type MemoryBackend struct {
	mu       sync.Mutex
	tables   map[string][][]string
	calls    map[string]int
	history  []string
	failures map[string]*failure
}

type failure struct {
	err       error
	remaining int // negative fails forever
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		tables:   make(map[string][][]string),
		calls:    make(map[string]int),
		failures: make(map[string]*failure),
	}
}

// SetRows replaces the whole content of a table, header included.
func (m *MemoryBackend) SetRows(table string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = cloneRows(rows)
}

// Rows returns a copy of a table, header included.
func (m *MemoryBackend) Rows(table string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRows(m.tables[table])
}

// Fail makes the next times calls of op return err. A negative count fails
// every call until Fail is called again with zero.
func (m *MemoryBackend) Fail(op string, times int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if times == 0 {
		delete(m.failures, op)
		return
	}
	m.failures[op] = &failure{err: err, remaining: times}
}

func (m *MemoryBackend) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// History lists calls in order as "op:table".
func (m *MemoryBackend) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

func (m *MemoryBackend) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.calls)
	m.history = nil
}

func (m *MemoryBackend) ReadRows(ctx context.Context, table string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpRead, table); err != nil {
		return nil, err
	}
	rows, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return cloneRows(rows), nil
}

func (m *MemoryBackend) AppendRows(ctx context.Context, table string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpAppend, table); err != nil {
		return err
	}
	if _, ok := m.tables[table]; !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	m.tables[table] = append(m.tables[table], cloneRows(rows)...)
	return nil
}

func (m *MemoryBackend) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpUpdate, table); err != nil {
		return err
	}
	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("%w: invalid cell %d:%d", ErrPermanent, row, col)
	}

	for len(rows) < row {
		rows = append(rows, nil)
	}
	for len(rows[row-1]) < col {
		rows[row-1] = append(rows[row-1], "")
	}
	rows[row-1][col-1] = value
	m.tables[table] = rows
	return nil
}

func (m *MemoryBackend) DeleteRows(ctx context.Context, table string, rows []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpDelete, table); err != nil {
		return err
	}
	existing, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	sorted := slices.Clone(rows)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	slices.Reverse(sorted)
	for _, row := range sorted {
		if row < 1 || row > len(existing) {
			continue
		}
		existing = slices.Delete(existing, row-1, row)
	}
	m.tables[table] = existing
	return nil
}

func (m *MemoryBackend) EnsureTable(ctx context.Context, table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpEnsure, table); err != nil {
		return err
	}
	if len(m.tables[table]) == 0 {
		m.tables[table] = [][]string{slices.Clone(header)}
	}
	return nil
}

func (m *MemoryBackend) begin(ctx context.Context, op, table string) error {
	m.calls[op]++
	m.history = append(m.history, op+":"+table)
	if err := ctx.Err(); err != nil {
		return err
	}
	f, ok := m.failures[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(m.failures, op)
		}
	}
	return f.err
}

func cloneRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = slices.Clone(row)
	}
	return out
}
