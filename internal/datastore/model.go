// model.go defines the persisted data model for the inspection line.
package datastore

import "time"

// Defect classification labels assigned by the vision pipeline. Stored as
// strings but treated as a closed set; Save rejects anything else.
const (
	DefectNormal    = "normal"
	DefectComponent = "component-defect"
	DefectSolder    = "solder-defect"
	DefectDiscard   = "discard"
)

// validDefects is the closed set of accepted classification labels.
var validDefects = map[string]struct{}{
	DefectNormal:    {},
	DefectComponent: {},
	DefectSolder:    {},
	DefectDiscard:   {},
}

// ValidDefect reports whether label is a known classification label.
func ValidDefect(label string) bool {
	_, ok := validDefects[label]
	return ok
}

// User roles. Used only as an opaque attribute returned to the caller.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// Inspection represents one classified outcome produced by the vision
// pipeline for a single PCB pass. Records are immutable after creation.
type Inspection struct {
	ID          uint   `gorm:"primaryKey"`
	Camera      string `gorm:"index:idx_inspections_camera"`
	Defect      string `gorm:"index:idx_inspections_defect;index:idx_inspections_time_defect,priority:2"`
	Confidence  float64
	InspectedAt time.Time `gorm:"index:idx_inspections_time;index:idx_inspections_time_defect,priority:1"`
	ImagePath   string
	// BoundingBoxes holds the serialized detection boxes. The store does not
	// interpret the payload.
	BoundingBoxes []byte

	// Sorting action metadata, absent when no GPIO action was triggered.
	GPIOPin      *int
	GPIODuration *time.Duration

	OperatorID *uint `gorm:"index:idx_inspections_operator"`
	Note       string
	CreatedAt  time.Time

	Details []DefectDetail `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE"`
}

// DefectDetail holds per-class detection counts for one inspection. Created
// together with its parent record and immutable afterwards.
type DefectDetail struct {
	ID            uint   `gorm:"primaryKey"`
	InspectionID  uint   `gorm:"index;not null"`
	ClassName     string `gorm:"index"`
	Count         int
	AvgConfidence *float64
}

// HourlyStat is a precomputed rollup row for one hour bucket. Maintained by
// an external batch process; read-only here.
type HourlyStat struct {
	ID                   uint      `gorm:"primaryKey"`
	StatHour             time.Time `gorm:"uniqueIndex:idx_statistics_hourly_hour"`
	Total                int64
	NormalCount          int64
	ComponentDefectCount int64
	SolderDefectCount    int64
	DiscardCount         int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName maps HourlyStat to the shared schema name.
func (HourlyStat) TableName() string { return "statistics_hourly" }

// DailyStat is a precomputed rollup row for one calendar day. Maintained by
// an external batch process; read-only here.
type DailyStat struct {
	ID                   uint   `gorm:"primaryKey"`
	StatDate             string `gorm:"uniqueIndex:idx_statistics_daily_date;type:varchar(10)"` // "2006-01-02"
	Total                int64
	NormalCount          int64
	ComponentDefectCount int64
	SolderDefectCount    int64
	DiscardCount         int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName maps DailyStat to the shared schema name.
func (DailyStat) TableName() string { return "statistics_daily" }

// DefectRateHistory is an append-only time series point. Cumulative counters
// are non-decreasing when ordered by RecordedAt.
type DefectRateHistory struct {
	ID               uint      `gorm:"primaryKey"`
	RecordedAt       time.Time `gorm:"index:idx_defect_rate_history_time"`
	DefectRate       float64
	TotalInspections int64
	DefectCount      int64
}

// TableName maps DefectRateHistory to the shared schema name.
func (DefectRateHistory) TableName() string { return "defect_rate_history" }

// BoxStatus is the occupancy state of one physical collection box.
// CurrentSlot is the 0-based index of the next free slot, bounded to
// [0, MaxSlots-1]. IsFull is latched by the routing event that lands a board
// in the top slot.
type BoxStatus struct {
	ID          uint   `gorm:"primaryKey"`
	BoxID       string `gorm:"uniqueIndex;type:varchar(32)"`
	Category    string `gorm:"uniqueIndex;type:varchar(32)"`
	CurrentSlot int
	MaxSlots    int
	IsFull      bool
	TotalCount  int64 // boards ever routed to this box, never reset
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName maps BoxStatus to the shared schema name.
func (BoxStatus) TableName() string { return "box_status" }

// BoxStatusHistory is an append-only snapshot of a box state, used for trend
// reconstruction. Read-only here.
type BoxStatusHistory struct {
	ID          uint   `gorm:"primaryKey"`
	BoxID       string `gorm:"index;type:varchar(32)"`
	CurrentSlot int
	IsFull      bool
	TotalCount  int64
	RecordedAt  time.Time `gorm:"index"`
}

// TableName maps BoxStatusHistory to the shared schema name.
func (BoxStatusHistory) TableName() string { return "box_status_history" }

// User is an operator account. PasswordHash is opaque to the store.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;type:varchar(64)"`
	PasswordHash string
	DisplayName  string
	Role         string `gorm:"type:varchar(16)"`
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}

// StatisticsSnapshot is a derived aggregate over a date range, never persisted.
type StatisticsSnapshot struct {
	TotalInspections     int64
	NormalCount          int64
	ComponentDefectCount int64
	SolderDefectCount    int64
	DiscardCount         int64
	// DefectRate is the percentage of boards not classified as normal,
	// 0 when no boards were inspected.
	DefectRate float64
}

// DefectClassSummary is one row of the top-defect-class aggregation.
type DefectClassSummary struct {
	ClassName     string
	TotalCount    int64
	AvgConfidence *float64
}
