package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
)

// MockAPI is an in-memory implementation of service.SheetAPI for testing.
// Tabs are addressed as "documentID!tab"; rows are 1-based.
type MockAPI struct {
	mu   sync.Mutex
	tabs map[string][][]string

	UpdateCalls  int
	ChangedCells int
	DeleteCalls  int
	FailOnUpdate error
	FailOnDelete error
}

// NewMockAPI creates an empty mock document service.
func NewMockAPI() *MockAPI {
	return &MockAPI{tabs: make(map[string][][]string)}
}

func tabKey(documentID, tab string) string {
	return documentID + "!" + tab
}

// SeedTab installs a tab's full contents.
func (m *MockAPI) SeedTab(documentID, tab string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[tabKey(documentID, tab)] = rows
}

// Rows returns a copy of a tab's contents.
func (m *MockAPI) Rows(documentID, tab string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tabs[tabKey(documentID, tab)]
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// ResetCounters clears call and change counters without touching data.
func (m *MockAPI) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = 0
	m.ChangedCells = 0
	m.DeleteCalls = 0
}

// ReadColumn implements service.SheetAPI.
func (m *MockAPI) ReadColumn(_ context.Context, documentID, tab, column string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := ColumnIndex(column)
	rows := m.tabs[tabKey(documentID, tab)]
	cells := make([]string, len(rows))
	for i, row := range rows {
		if idx < len(row) {
			cells[i] = row[idx]
		}
	}
	return cells, nil
}

// ReadRow implements service.SheetAPI.
func (m *MockAPI) ReadRow(_ context.Context, documentID, tab string, row int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tabs[tabKey(documentID, tab)]
	if row < 1 || int(row) > len(rows) {
		return nil, nil
	}
	return append([]string(nil), rows[row-1]...), nil
}

var a1Pattern = regexp.MustCompile(`^(.+)!([A-Z]+)(\d+)$`)

// UpdateCells implements service.SheetAPI. Only single-cell ranges are
// supported, which is all the sync engine emits.
func (m *MockAPI) UpdateCells(_ context.Context, documentID string, updates []service.RangeValues) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOnUpdate != nil {
		return m.FailOnUpdate
	}
	m.UpdateCalls++

	for _, update := range updates {
		match := a1Pattern.FindStringSubmatch(update.Range)
		if match == nil {
			return fmt.Errorf("unparseable range %q", update.Range)
		}
		tab := match[1]
		col := ColumnIndex(match[2])
		row, err := strconv.Atoi(match[3])
		if err != nil || row < 1 {
			return fmt.Errorf("bad row in range %q", update.Range)
		}
		if len(update.Values) != 1 || len(update.Values[0]) != 1 {
			return fmt.Errorf("expected single-cell range, got %q", update.Range)
		}

		key := tabKey(documentID, tab)
		rows := m.tabs[key]
		for len(rows) < row {
			rows = append(rows, []string{})
		}
		for len(rows[row-1]) <= col {
			rows[row-1] = append(rows[row-1], "")
		}

		next := CellString(update.Values[0][0])
		if rows[row-1][col] != next {
			m.ChangedCells++
		}
		rows[row-1][col] = next
		m.tabs[key] = rows
	}
	return nil
}

// DeleteRow implements service.SheetAPI.
func (m *MockAPI) DeleteRow(_ context.Context, documentID, tab string, row int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOnDelete != nil {
		return m.FailOnDelete
	}
	m.DeleteCalls++

	key := tabKey(documentID, tab)
	rows := m.tabs[key]
	if row < 1 || int(row) > len(rows) {
		return nil
	}
	m.tabs[key] = append(rows[:row-1], rows[row:]...)
	return nil
}
