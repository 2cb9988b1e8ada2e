package stores

import (
	"testing"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/catalog"
	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOperation(id, entityID string) *deletion.DeletionOperation {
	now := time.Now().UTC()
	return &deletion.DeletionOperation{
		ID:         id,
		EntityKind: catalog.KindStudents,
		EntityID:   entityID,
		Status:     deletion.StatusPending,
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

func TestBeginEnforcesExclusivity(t *testing.T) {
	store := NewOperationsStore(nil)

	require.NoError(t, store.Begin(testOperation("del_1", "stu1")))

	err := store.Begin(testOperation("del_2", "stu1"))
	require.Error(t, err)
	var procErr *deletion.ProcessedError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, deletion.CodeDeleteInProgress, procErr.Code)

	// A different entity is unaffected.
	assert.NoError(t, store.Begin(testOperation("del_3", "stu2")))
}

func TestTerminalStatusReleasesSlot(t *testing.T) {
	store := NewOperationsStore(nil)
	require.NoError(t, store.Begin(testOperation("del_1", "stu1")))

	assert.True(t, store.SetStatus("del_1", deletion.StatusCompleted, nil))

	op, ok := store.Get("del_1")
	require.True(t, ok)
	assert.Equal(t, deletion.StatusCompleted, op.Status)
	require.NotNil(t, op.EndedAt)

	_, busy := store.ActiveFor(catalog.KindStudents, "stu1")
	assert.False(t, busy)

	// The slot is free for a new run.
	assert.NoError(t, store.Begin(testOperation("del_2", "stu1")))
}

func TestSetStatusUnknownOperation(t *testing.T) {
	store := NewOperationsStore(nil)
	assert.False(t, store.SetStatus("del_missing", deletion.StatusFailed, nil))
}

func TestSetProgressNotifiesOnMaterialChange(t *testing.T) {
	store := NewOperationsStore(nil)
	ch, cancel := store.Subscribe("del_1")
	defer cancel()

	first := deletion.DeletionProgress{OperationID: "del_1", Phase: deletion.PhaseProcessing, Percentage: 10, Processed: 2, Total: 20}
	store.SetProgress(first)

	select {
	case got := <-ch:
		assert.Equal(t, first, got)
	default:
		t.Fatal("expected a progress notification")
	}

	// An identical report is absorbed.
	store.SetProgress(first)
	select {
	case <-ch:
		t.Fatal("identical report should not notify")
	default:
	}

	second := first
	second.Percentage = 20
	store.SetProgress(second)
	select {
	case got := <-ch:
		assert.Equal(t, 20, got.Percentage)
	default:
		t.Fatal("material change should notify")
	}
}

func TestSetProgressRejectsRegression(t *testing.T) {
	store := NewOperationsStore(nil)
	ch, cancel := store.Subscribe("del_1")
	defer cancel()

	store.SetProgress(deletion.DeletionProgress{OperationID: "del_1", Phase: deletion.PhaseProcessing, Percentage: 80})
	<-ch

	// A stale out-of-order report must not move progress backwards or reach
	// subscribers.
	store.SetProgress(deletion.DeletionProgress{OperationID: "del_1", Phase: deletion.PhaseProcessing, Percentage: 10})

	got, ok := store.Progress("del_1")
	require.True(t, ok)
	assert.Equal(t, 80, got.Percentage)
	select {
	case <-ch:
		t.Fatal("regressed report should not notify")
	default:
	}

	// A terminal phase may carry any percentage.
	store.SetProgress(deletion.DeletionProgress{OperationID: "del_1", Phase: deletion.PhaseFailed, Percentage: 0})
	got, _ = store.Progress("del_1")
	assert.Equal(t, deletion.PhaseFailed, got.Phase)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	store := NewOperationsStore(nil)
	ch, cancel := store.Subscribe("del_1")
	cancel()

	// Channel is closed on cancel.
	_, open := <-ch
	assert.False(t, open)

	// Reporting after cancel must not panic.
	store.SetProgress(deletion.DeletionProgress{OperationID: "del_1", Phase: deletion.PhaseProcessing, Percentage: 50})
}

func TestProgressLookup(t *testing.T) {
	store := NewOperationsStore(nil)

	_, ok := store.Progress("del_1")
	assert.False(t, ok)

	report := deletion.DeletionProgress{OperationID: "del_1", Phase: deletion.PhaseVerifying, Percentage: 99}
	store.SetProgress(report)

	got, ok := store.Progress("del_1")
	require.True(t, ok)
	assert.Equal(t, report, got)
}

func TestPurgeTerminal(t *testing.T) {
	store := NewOperationsStore(nil)

	require.NoError(t, store.Begin(testOperation("del_old", "stu1")))
	require.NoError(t, store.Begin(testOperation("del_live", "stu2")))
	store.SetStatus("del_old", deletion.StatusCompleted, nil)

	// Nothing is old enough yet.
	assert.Zero(t, store.PurgeTerminal(time.Hour))

	// With zero retention the terminal one goes; the live one stays.
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, store.PurgeTerminal(0))

	_, ok := store.Get("del_old")
	assert.False(t, ok)
	_, ok = store.Get("del_live")
	assert.True(t, ok)
}

func TestListReturnsCopies(t *testing.T) {
	store := NewOperationsStore(nil)
	require.NoError(t, store.Begin(testOperation("del_1", "stu1")))

	ops := store.List()
	require.Len(t, ops, 1)
	ops[0].Status = deletion.StatusFailed

	stored, ok := store.Get("del_1")
	require.True(t, ok)
	assert.Equal(t, deletion.StatusPending, stored.Status)
}
