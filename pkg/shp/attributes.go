package shp

import (
	"fmt"
	"slices"
	"sync"
)

// AttributeProvider supplies the attribute row of a shape. Rows are addressed
// by shape position, the same id the spatial index uses.
type AttributeProvider interface {
	Row(index int) (map[string]any, error)
}

// RowRemover is implemented by providers that can drop a row. FeatureSet
// calls it when a shape is removed with compaction so rows stay aligned.
type RowRemover interface {
	RemoveRow(index int) error
}

// MapAttributes is an in-memory AttributeProvider.
type MapAttributes struct {
	mu   sync.RWMutex
	rows []map[string]any
}

// NewMapAttributes creates a provider over the given rows.
func NewMapAttributes(rows ...map[string]any) *MapAttributes {
	return &MapAttributes{rows: rows}
}

// Row returns row index, or nil when the provider has fewer rows.
func (m *MapAttributes) Row(index int) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 {
		return nil, fmt.Errorf("row %d: %w", index, ErrIndexOutOfRange)
	}
	if index >= len(m.rows) {
		return nil, nil
	}
	return m.rows[index], nil
}

// Append adds a row and returns its index.
func (m *MapAttributes) Append(row map[string]any) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return len(m.rows) - 1
}

// RemoveRow deletes row index, shifting later rows down.
func (m *MapAttributes) RemoveRow(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.rows) {
		return fmt.Errorf("row %d: %w", index, ErrIndexOutOfRange)
	}
	m.rows = slices.Delete(m.rows, index, index+1)
	return nil
}

// Len returns the number of rows.
func (m *MapAttributes) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
