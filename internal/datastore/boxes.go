// boxes.go tracks the occupancy of the physical sorting boxes.
package datastore

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pcbaoi/aoi-go/internal/errors"
)

// Deployed box identifiers. Each box collects boards of exactly one
// classification; discard boards are not boxed.
const (
	BoxNormal    = "box-normal"
	BoxComponent = "box-component"
	BoxSolder    = "box-solder"
)

// boxCategories maps classification labels to the box that collects them.
// DefectDiscard deliberately has no entry.
var boxCategories = map[string]string{
	DefectNormal:    BoxNormal,
	DefectComponent: BoxComponent,
	DefectSolder:    BoxSolder,
}

// BoxForDefect returns the box collecting boards of the given classification
// and false when the classification is not boxed.
func BoxForDefect(defect string) (string, bool) {
	boxID, ok := boxCategories[defect]
	return boxID, ok
}

// SeedBoxes creates the box rows for the deployed configuration if they do
// not exist yet. Called from Open after migration.
func (ds *DataStore) SeedBoxes(maxSlots int) error {
	for defect, boxID := range boxCategories {
		box := BoxStatus{
			BoxID:    boxID,
			Category: defect,
			MaxSlots: maxSlots,
		}
		err := ds.DB.Where("box_id = ?", boxID).FirstOrCreate(&box).Error
		if err != nil {
			return storageError(err, "seed_boxes", "box_id", boxID)
		}
	}
	return nil
}

// boxLock returns the mutex serializing slot advancement for one box.
func (ds *DataStore) boxLock(boxID string) *sync.Mutex {
	ds.boxMu.Lock()
	defer ds.boxMu.Unlock()
	if ds.boxLocks == nil {
		ds.boxLocks = make(map[string]*sync.Mutex)
	}
	lock, ok := ds.boxLocks[boxID]
	if !ok {
		lock = &sync.Mutex{}
		ds.boxLocks[boxID] = lock
	}
	return lock
}

// GetAllBoxStatus returns a snapshot of every configured box. No ordering is
// guaranteed beyond box identity; callers sort if needed.
func (ds *DataStore) GetAllBoxStatus(ctx context.Context) (boxes []BoxStatus, err error) {
	defer func(start time.Time) { ds.observe("get_all_box_status", start, err) }(time.Now())

	if err = ds.DB.WithContext(ctx).Find(&boxes).Error; err != nil {
		err = storageError(err, "get_all_box_status")
		return nil, err
	}
	return boxes, nil
}

// GetBoxStatus returns the current state of one box.
func (ds *DataStore) GetBoxStatus(ctx context.Context, boxID string) (box *BoxStatus, err error) {
	defer func(start time.Time) { ds.observe("get_box_status", start, err) }(time.Now())

	var found BoxStatus
	err = ds.DB.WithContext(ctx).Where("box_id = ?", boxID).First(&found).Error
	switch {
	case err == nil:
		return &found, nil
	case gormNotFound(err):
		err = notFoundError(ErrBoxNotFound, "box", boxID)
		return nil, err
	default:
		err = storageError(err, "get_box_status", "box_id", boxID)
		return nil, err
	}
}

// advanceBoxTx moves the slot pointer of the box with the given category
// forward by one inside tx. Must be called with the box lock held.
//
// The pointer saturates at the top slot: the routing event that lands a
// board in the top slot latches IsFull, and any event arriving after that is
// rejected with ErrBoxFull so the line operator knows the box needs
// emptying. With capacity C this admits exactly C boards between resets.
func advanceBoxTx(tx *gorm.DB, category string, now time.Time) (*BoxStatus, error) {
	var box BoxStatus
	if err := tx.Where("category = ?", category).First(&box).Error; err != nil {
		if gormNotFound(err) {
			return nil, notFoundError(ErrBoxNotFound, "box", category)
		}
		return nil, storageError(err, "advance_box", "category", category)
	}

	if box.IsFull {
		return nil, capacityError(box.BoxID, box.MaxSlots)
	}

	next := box.CurrentSlot + 1
	if next > box.MaxSlots-1 {
		next = box.MaxSlots - 1
		box.IsFull = true
	}
	box.CurrentSlot = next
	box.TotalCount++
	box.UpdatedAt = now

	if err := tx.Model(&BoxStatus{}).Where("id = ?", box.ID).Updates(map[string]any{
		"current_slot": box.CurrentSlot,
		"is_full":      box.IsFull,
		"total_count":  box.TotalCount,
		"updated_at":   box.UpdatedAt,
	}).Error; err != nil {
		return nil, storageError(err, "advance_box", "box_id", box.BoxID)
	}

	return &box, nil
}

// AdvanceBoxSlot routes one board to the given box, advancing its slot
// pointer. Returns ErrBoxFull once the box holds MaxSlots boards; the
// rejection is never silently clamped.
func (ds *DataStore) AdvanceBoxSlot(ctx context.Context, boxID string) (box *BoxStatus, err error) {
	defer func(start time.Time) { ds.observe("advance_box_slot", start, err) }(time.Now())

	current, err := ds.GetBoxStatus(ctx, boxID)
	if err != nil {
		return nil, err
	}

	lock := ds.boxLock(boxID)
	lock.Lock()
	defer lock.Unlock()

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		box, err = advanceBoxTx(tx, current.Category, time.Now())
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBoxFull) {
			ds.metrics.RecordBoxFull(boxID)
			ds.logger().Warn("routing rejected, box needs emptying", "box_id", boxID)
		}
		return nil, err
	}
	return box, nil
}

// SaveWithRouting persists an inspection record and advances the matching
// box slot in one transaction. A routing failure (full box, storage error)
// rolls the record back, so a record is never persisted while its slot
// increment was lost. Discard boards are persisted without any box
// bookkeeping.
func (ds *DataStore) SaveWithRouting(ctx context.Context, rec *Inspection, details []DefectDetail) (err error) {
	defer func(start time.Time) { ds.observe("save_with_routing", start, err) }(time.Now())

	if err = validateInspection(rec); err != nil {
		return err
	}

	boxID, routed := BoxForDefect(rec.Defect)
	if routed {
		lock := ds.boxLock(boxID)
		lock.Lock()
		defer lock.Unlock()
	}

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveInspectionTx(tx, rec, details); err != nil {
			return storageError(err, "save_with_routing", "camera", rec.Camera)
		}
		if routed {
			if _, err := advanceBoxTx(tx, rec.Defect, time.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBoxFull) {
			ds.metrics.RecordBoxFull(boxID)
		}
		return err
	}

	ds.metrics.RecordInspectionSaved(rec.Defect)
	return nil
}

// BoxHistoryRange returns the occupancy snapshots recorded for one box in
// [start, end), ascending by recording time. The snapshots themselves are
// written by the external dispatch process; this is a passthrough read for
// trend reconstruction.
func (ds *DataStore) BoxHistoryRange(ctx context.Context, boxID string, start, end time.Time) (snapshots []BoxStatusHistory, err error) {
	defer func(s time.Time) { ds.observe("box_history_range", s, err) }(time.Now())

	err = ds.DB.WithContext(ctx).
		Where("box_id = ? AND recorded_at >= ? AND recorded_at < ?", boxID, start, end).
		Order("recorded_at ASC").
		Find(&snapshots).Error
	if err != nil {
		err = storageError(err, "box_history_range", "box_id", boxID)
		return nil, err
	}
	return snapshots, nil
}

// ResetBoxSlot clears the slot pointer after the external robot dispatch has
// emptied the box. TotalCount is cumulative and survives the reset.
func (ds *DataStore) ResetBoxSlot(ctx context.Context, boxID string) (box *BoxStatus, err error) {
	defer func(start time.Time) { ds.observe("reset_box_slot", start, err) }(time.Now())

	lock := ds.boxLock(boxID)
	lock.Lock()
	defer lock.Unlock()

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found BoxStatus
		if err := tx.Where("box_id = ?", boxID).First(&found).Error; err != nil {
			if gormNotFound(err) {
				return notFoundError(ErrBoxNotFound, "box", boxID)
			}
			return storageError(err, "reset_box_slot", "box_id", boxID)
		}

		found.CurrentSlot = 0
		found.IsFull = false
		found.UpdatedAt = time.Now()

		if err := tx.Model(&BoxStatus{}).Where("id = ?", found.ID).Updates(map[string]any{
			"current_slot": 0,
			"is_full":      false,
			"updated_at":   found.UpdatedAt,
		}).Error; err != nil {
			return storageError(err, "reset_box_slot", "box_id", boxID)
		}

		box = &found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return box, nil
}
