package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/awion/sentinel-dash/model"
)

func TestBoardRowsAreReplacedNotPatched(t *testing.T) {
	b := NewBoard("Ingest")

	b.AppendRow("alerts", []model.Cell{{Text: "a"}})
	b.AppendRow("alerts", []model.Cell{{Text: "b"}})
	assert.Len(t, b.Rows("alerts"), 2)

	b.ClearRows("alerts")
	assert.Empty(t, b.Rows("alerts"))
	assert.Empty(t, b.Rows("never-written"))
}

func TestBoardRowsAreCopies(t *testing.T) {
	b := NewBoard("Ingest")
	cells := []model.Cell{{Text: "a"}}
	b.AppendRow("alerts", cells)
	cells[0].Text = "mutated"

	rows := b.Rows("alerts")
	assert.Equal(t, "a", rows[0][0].Text)
	rows[0][0].Text = "mutated"
	assert.Equal(t, "a", b.Rows("alerts")[0][0].Text)
}

func TestBoardSelectorKeepsValidSelection(t *testing.T) {
	b := NewBoard("Ingest")
	b.SetOptions([]model.Option{{Value: "", Label: "Select"}, {Value: "a.csv", Label: "A"}})

	assert.False(t, b.Select("missing.csv"))
	assert.True(t, b.Select("a.csv"))
	assert.Equal(t, "a.csv", b.Selected())

	b.SetOptions([]model.Option{{Value: "", Label: "Select"}, {Value: "a.csv", Label: "A"}, {Value: "b.csv", Label: "B"}})
	assert.Equal(t, "a.csv", b.Selected())

	b.SetOptions([]model.Option{{Value: "", Label: "Select"}, {Value: "b.csv", Label: "B"}})
	assert.Equal(t, "", b.Selected())
}

func TestBoardTrigger(t *testing.T) {
	b := NewBoard("Ingest")
	enabled, label := b.Trigger()
	assert.True(t, enabled)
	assert.Equal(t, "Ingest", label)

	b.SetEnabled(false)
	b.SetLabel("Ingesting...")
	enabled, label = b.Trigger()
	assert.False(t, enabled)
	assert.Equal(t, "Ingesting...", label)
}

func TestBoardBatchIsAtomicForReaders(t *testing.T) {
	b := NewBoard("Ingest")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			b.Batch(func(s Surface) {
				s.ClearRows("alerts")
				s.AppendRow("alerts", []model.Cell{{Text: "1"}})
				s.AppendRow("alerts", []model.Cell{{Text: "2"}})
				s.SetText("alert-count", "2")
			})
		}
	}()

	for i := 0; i < 1000; i++ {
		rows := b.Rows("alerts")
		assert.True(t, len(rows) == 0 || len(rows) == 2, "saw partial render of %d rows", len(rows))
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, "2", b.Text("alert-count"))
}
