// filters.go implements the shared predicate builder for inspection queries.
package datastore

import (
	"time"

	"gorm.io/gorm"
)

// SearchFilters narrows inspection queries. All fields are optional; a nil
// field places no constraint on that dimension. Present fields combine with
// logical AND.
type SearchFilters struct {
	// StartTime keeps inspections at or after this instant.
	StartTime *time.Time

	// EndTime keeps inspections before this instant.
	EndTime *time.Time

	// Defect keeps inspections with this exact classification label.
	Defect *string

	// Camera keeps inspections from this exact camera identifier.
	Camera *string

	// OperatorID keeps inspections attributed to this operator.
	OperatorID *uint
}

// apply appends one parameterized predicate per present dimension, in a
// fixed order (start, end, defect, camera, operator) so generated statements
// are stable by shape. Values are always bound, never interpolated into the
// query text. Search and Count both go through here so that listing and
// counting cannot diverge.
func (f *SearchFilters) apply(query *gorm.DB) *gorm.DB {
	if f == nil {
		return query
	}
	if f.StartTime != nil {
		query = query.Where("inspected_at >= ?", *f.StartTime)
	}
	if f.EndTime != nil {
		query = query.Where("inspected_at < ?", *f.EndTime)
	}
	if f.Defect != nil {
		query = query.Where("defect = ?", *f.Defect)
	}
	if f.Camera != nil {
		query = query.Where("camera = ?", *f.Camera)
	}
	if f.OperatorID != nil {
		query = query.Where("operator_id = ?", *f.OperatorID)
	}
	return query
}
