package datastore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pcbaoi/aoi-go/internal/errors"
)

func TestSeedBoxesCreatesDeployedConfiguration(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	boxes, err := ds.GetAllBoxStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, boxes, 3)

	byID := make(map[string]BoxStatus, len(boxes))
	for _, b := range boxes {
		byID[b.BoxID] = b
	}
	for defect, boxID := range map[string]string{
		DefectNormal:    BoxNormal,
		DefectComponent: BoxComponent,
		DefectSolder:    BoxSolder,
	} {
		b, ok := byID[boxID]
		require.True(t, ok, "missing box %s", boxID)
		assert.Equal(t, defect, b.Category)
		assert.Equal(t, 5, b.MaxSlots)
		assert.Zero(t, b.CurrentSlot)
		assert.False(t, b.IsFull)
	}

	// Seeding again is idempotent.
	require.NoError(t, ds.SeedBoxes(5))
	again, err := ds.GetAllBoxStatus(context.Background())
	require.NoError(t, err)
	assert.Len(t, again, 3)
}

func TestAdvanceBoxSlotSaturatesAndRejects(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	const capacity = 5
	for n := 1; n <= capacity; n++ {
		box, err := ds.AdvanceBoxSlot(ctx, BoxSolder)
		require.NoError(t, err, "routing event %d", n)

		wantSlot := n
		if wantSlot > capacity-1 {
			wantSlot = capacity - 1
		}
		assert.Equal(t, wantSlot, box.CurrentSlot, "after event %d", n)
		assert.Equal(t, n == capacity, box.IsFull, "after event %d", n)
		assert.EqualValues(t, n, box.TotalCount)
	}

	// The (capacity+1)-th event is a caller-observable precondition
	// violation, never a silent clamp.
	_, err := ds.AdvanceBoxSlot(ctx, BoxSolder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBoxFull))

	box, err := ds.GetBoxStatus(ctx, BoxSolder)
	require.NoError(t, err)
	assert.Equal(t, capacity-1, box.CurrentSlot)
	assert.True(t, box.IsFull)
	assert.EqualValues(t, capacity, box.TotalCount)
}

func TestAdvanceBoxSlotUnknownBox(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	_, err := ds.AdvanceBoxSlot(context.Background(), "box-unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBoxNotFound))
}

func TestResetBoxSlotClearsOccupancyKeepsTotal(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	for j := 0; j < 5; j++ {
		_, err := ds.AdvanceBoxSlot(ctx, BoxNormal)
		require.NoError(t, err)
	}

	box, err := ds.ResetBoxSlot(ctx, BoxNormal)
	require.NoError(t, err)
	assert.Zero(t, box.CurrentSlot)
	assert.False(t, box.IsFull)
	assert.EqualValues(t, 5, box.TotalCount)

	// The emptied box accepts boards again.
	box, err = ds.AdvanceBoxSlot(ctx, BoxNormal)
	require.NoError(t, err)
	assert.Equal(t, 1, box.CurrentSlot)
	assert.EqualValues(t, 6, box.TotalCount)
}

// TestConcurrentRoutingAgainstOneBox drives 50 concurrent routing events at
// a box with capacity 5: exactly 5 must succeed, 45 must be rejected, and
// the slot index must never leave [0, 4].
func TestConcurrentRoutingAgainstOneBox(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	const events = 50
	const capacity = 5

	var successes, rejections atomic.Int64
	var g errgroup.Group
	for j := 0; j < events; j++ {
		g.Go(func() error {
			_, err := ds.AdvanceBoxSlot(ctx, BoxComponent)
			switch {
			case err == nil:
				successes.Add(1)
				return nil
			case errors.Is(err, ErrBoxFull):
				rejections.Add(1)
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, capacity, successes.Load())
	assert.EqualValues(t, events-capacity, rejections.Load())

	box, err := ds.GetBoxStatus(ctx, BoxComponent)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, box.CurrentSlot, 0)
	assert.LessOrEqual(t, box.CurrentSlot, capacity-1)
	assert.EqualValues(t, capacity, box.TotalCount)
	assert.True(t, box.IsFull)
}

func TestSaveWithRoutingAdvancesMatchingBox(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, ds.SaveWithRouting(ctx, mkInspection(DefectComponent, at), nil))

	box, err := ds.GetBoxStatus(ctx, BoxComponent)
	require.NoError(t, err)
	assert.Equal(t, 1, box.CurrentSlot)
	assert.EqualValues(t, 1, box.TotalCount)

	// Other boxes are untouched.
	other, err := ds.GetBoxStatus(ctx, BoxNormal)
	require.NoError(t, err)
	assert.Zero(t, other.TotalCount)
}

func TestSaveWithRoutingDiscardSkipsBoxes(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, ds.SaveWithRouting(ctx, mkInspection(DefectDiscard, at), nil))

	boxes, err := ds.GetAllBoxStatus(ctx)
	require.NoError(t, err)
	for _, b := range boxes {
		assert.Zero(t, b.TotalCount, "box %s", b.BoxID)
	}

	total, err := ds.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

// TestSaveWithRoutingIsTransactional fills a box, then verifies that a
// routing rejection rolls the inspection record back with it: a record is
// never persisted while its slot increment was lost.
func TestSaveWithRoutingIsTransactional(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := mkInspection(DefectSolder, at.Add(time.Duration(i)*time.Minute))
		require.NoError(t, ds.SaveWithRouting(ctx, rec, nil))
	}

	overflow := mkInspection(DefectSolder, at.Add(time.Hour))
	err := ds.SaveWithRouting(ctx, overflow, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBoxFull))

	total, err := ds.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total, "rejected routing must not leave a record behind")

	box, err := ds.GetBoxStatus(ctx, BoxSolder)
	require.NoError(t, err)
	assert.Equal(t, 4, box.CurrentSlot)
	assert.EqualValues(t, 5, box.TotalCount)
}

func TestBoxHistoryRange(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snapshots := []BoxStatusHistory{
		{BoxID: BoxNormal, CurrentSlot: 2, TotalCount: 12, RecordedAt: base.Add(2 * time.Hour)},
		{BoxID: BoxNormal, CurrentSlot: 0, TotalCount: 10, RecordedAt: base.Add(1 * time.Hour)},
		{BoxID: BoxNormal, CurrentSlot: 4, IsFull: true, TotalCount: 15, RecordedAt: base.Add(30 * time.Hour)},
		{BoxID: BoxSolder, CurrentSlot: 1, TotalCount: 3, RecordedAt: base.Add(90 * time.Minute)},
	}
	for i := range snapshots {
		require.NoError(t, ds.DB.Create(&snapshots[i]).Error)
	}

	got, err := ds.BoxHistoryRange(ctx, BoxNormal, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].RecordedAt.After(got[0].RecordedAt))
	assert.EqualValues(t, 10, got[0].TotalCount)
	assert.EqualValues(t, 12, got[1].TotalCount)
	for _, s := range got {
		assert.Equal(t, BoxNormal, s.BoxID)
	}
}

func TestBoxForDefect(t *testing.T) {
	t.Parallel()

	boxID, ok := BoxForDefect(DefectNormal)
	assert.True(t, ok)
	assert.Equal(t, BoxNormal, boxID)

	_, ok = BoxForDefect(DefectDiscard)
	assert.False(t, ok)

	_, ok = BoxForDefect("scratch")
	assert.False(t, ok)
}
