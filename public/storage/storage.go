package storage

import (
	"sync"

	"github.com/awion/sentinel-dash/model"
)

// Board is the in-memory rendering surface of the dashboard. It holds the
// rows of each table, named text fields, the dataset selector and the
// ingest trigger. All methods are safe for concurrent use.
type Board struct {
	tables   map[string][][]model.Cell
	fields   map[string]string
	options  []model.Option
	selected string
	enabled  bool
	label    string
	mutex    sync.RWMutex
}

// NewBoard creates an empty board whose trigger starts enabled with label.
func NewBoard(triggerLabel string) *Board {
	return &Board{
		tables:  make(map[string][][]model.Cell),
		fields:  make(map[string]string),
		enabled: true,
		label:   triggerLabel,
	}
}

// ClearRows removes every row of a table
func (b *Board) ClearRows(table string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.tables[table] = nil
}

// AppendRow adds a row at the end of a table
func (b *Board) AppendRow(table string, cells []model.Cell) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	row := make([]model.Cell, len(cells))
	copy(row, cells)
	b.tables[table] = append(b.tables[table], row)
}

// SetText sets a named text field
func (b *Board) SetText(field, text string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.fields[field] = text
}

// Batch runs fn while holding the board lock, so readers never observe a
// partially rendered update.
func (b *Board) Batch(fn func(s Surface)) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	fn(lockedBoard{b})
}

// Rows returns a copy of the rows of a table
func (b *Board) Rows(table string) [][]model.Cell {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	src := b.tables[table]
	rows := make([][]model.Cell, len(src))
	for i, row := range src {
		rows[i] = append([]model.Cell(nil), row...)
	}
	return rows
}

// Text returns a named text field
func (b *Board) Text(field string) string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.fields[field]
}

// SetOptions replaces the selector options. The current selection is kept
// only if it is still offered.
func (b *Board) SetOptions(options []model.Option) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.options = append([]model.Option(nil), options...)
	for _, opt := range b.options {
		if opt.Value == b.selected {
			return
		}
	}
	b.selected = ""
}

// Options returns a copy of the selector options
func (b *Board) Options() []model.Option {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return append([]model.Option(nil), b.options...)
}

// Select picks the option with the given value. It reports false when no
// such option exists.
func (b *Board) Select(value string) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, opt := range b.options {
		if opt.Value == value {
			b.selected = value
			return true
		}
	}
	return false
}

// Selected returns the value of the selected option, "" when none
func (b *Board) Selected() string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.selected
}

// SetEnabled enables or disables the ingest trigger
func (b *Board) SetEnabled(enabled bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.enabled = enabled
}

// SetLabel sets the ingest trigger label
func (b *Board) SetLabel(label string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.label = label
}

// Trigger returns the ingest trigger state
func (b *Board) Trigger() (enabled bool, label string) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.enabled, b.label
}

// Surface is the render target the dashboard writes tables and text to.
type Surface interface {
	ClearRows(table string)
	AppendRow(table string, cells []model.Cell)
	SetText(field, text string)
}

// lockedBoard writes to a board whose lock is already held by Batch.
type lockedBoard struct {
	b *Board
}

func (l lockedBoard) ClearRows(table string) {
	l.b.tables[table] = nil
}

func (l lockedBoard) AppendRow(table string, cells []model.Cell) {
	l.b.tables[table] = append(l.b.tables[table], append([]model.Cell(nil), cells...))
}

func (l lockedBoard) SetText(field, text string) {
	l.b.fields[field] = text
}
