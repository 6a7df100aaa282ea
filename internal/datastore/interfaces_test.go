package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pcbaoi/aoi-go/internal/conf"
	"github.com/pcbaoi/aoi-go/internal/errors"
)

// setupTestDB creates an in-memory SQLite store with the full schema and
// the deployed box configuration.
func setupTestDB(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&Inspection{},
		&DefectDetail{},
		&HourlyStat{},
		&DailyStat{},
		&DefectRateHistory{},
		&BoxStatus{},
		&BoxStatusHistory{},
		&User{},
	)
	require.NoError(t, err)

	ds := &DataStore{DB: db}
	require.NoError(t, ds.SeedBoxes(5))
	return ds
}

// mkInspection returns a minimal valid record.
func mkInspection(defect string, at time.Time) *Inspection {
	return &Inspection{
		Camera:      "cam-1",
		Defect:      defect,
		Confidence:  0.9,
		InspectedAt: at,
	}
}

func TestSaveAndGet(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	pin := 17
	dur := 250 * time.Millisecond
	opID := uint(3)
	avg := 0.81
	rec := &Inspection{
		Camera:        "cam-2",
		Defect:        DefectSolder,
		Confidence:    0.97,
		InspectedAt:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ImagePath:     "/images/board-42.png",
		BoundingBoxes: []byte(`[{"x":10,"y":20,"w":30,"h":40}]`),
		GPIOPin:       &pin,
		GPIODuration:  &dur,
		OperatorID:    &opID,
		Note:          "cold joint near U7",
	}
	details := []DefectDetail{
		{ClassName: "cold-joint", Count: 2, AvgConfidence: &avg},
		{ClassName: "bridge", Count: 1},
	}

	require.NoError(t, ds.Save(ctx, rec, details))
	require.NotZero(t, rec.ID)

	got, err := ds.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "cam-2", got.Camera)
	assert.Equal(t, DefectSolder, got.Defect)
	assert.Equal(t, "/images/board-42.png", got.ImagePath)
	require.NotNil(t, got.GPIOPin)
	assert.Equal(t, 17, *got.GPIOPin)
	require.Len(t, got.Details, 2)
	assert.Equal(t, rec.ID, got.Details[0].InspectionID)
}

func TestGetNotFoundIsDistinctFromStorageError(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	_, err := ds.Get(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInspectionNotFound))
	assert.False(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveRejectsMalformedRecords(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	cases := []struct {
		name string
		rec  *Inspection
	}{
		{"nil record", nil},
		{"zero timestamp", &Inspection{Camera: "cam-1", Defect: DefectNormal}},
		{"missing camera", &Inspection{Defect: DefectNormal, InspectedAt: time.Now()}},
		{"unknown defect", &Inspection{Camera: "cam-1", Defect: "scratch", InspectedAt: time.Now()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ds.Save(ctx, tc.rec, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConstraintViolation))
		})
	}

	// Nothing was persisted.
	total, err := ds.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSearchRejectsInvalidPagination(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	_, err := ds.Search(ctx, nil, 0, 10)
	assert.True(t, errors.Is(err, ErrConstraintViolation))

	_, err = ds.Search(ctx, nil, 1, 0)
	assert.True(t, errors.Is(err, ErrConstraintViolation))
}

func TestSearchPaginationReproducesMatchingSet(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	defects := []string{DefectNormal, DefectComponent, DefectSolder, DefectDiscard}
	const n = 23
	for i := 0; i < n; i++ {
		rec := mkInspection(defects[i%len(defects)], base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, ds.Save(ctx, rec, nil))
	}
	// Duplicate timestamps to exercise the id tie-break.
	for j := 0; j < 3; j++ {
		require.NoError(t, ds.Save(ctx, mkInspection(DefectNormal, base), nil))
	}

	total, err := ds.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, n+3, total)

	const pageSize = 7
	pages := int((total + pageSize - 1) / pageSize)
	var all []Inspection
	for page := 1; page <= pages; page++ {
		recs, err := ds.Search(ctx, nil, page, pageSize)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(recs), pageSize)
		all = append(all, recs...)
	}

	require.EqualValues(t, total, len(all))

	// Ordered by inspection time descending, ties broken by id descending,
	// with no duplicates across page boundaries.
	seen := make(map[uint]bool, len(all))
	for i := range all {
		assert.False(t, seen[all[i].ID], "record %d returned twice", all[i].ID)
		seen[all[i].ID] = true
		if i > 0 {
			prev, cur := &all[i-1], &all[i]
			if prev.InspectedAt.Equal(cur.InspectedAt) {
				assert.Greater(t, prev.ID, cur.ID)
			} else {
				assert.True(t, prev.InspectedAt.After(cur.InspectedAt))
			}
		}
	}

	// A page past the end is empty, not an error.
	recs, err := ds.Search(ctx, nil, pages+1, pageSize)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCountMatchesFilterDimensions(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	save := func(defect, camera string, opID *uint, at time.Time) {
		rec := mkInspection(defect, at)
		rec.Camera = camera
		rec.OperatorID = opID
		require.NoError(t, ds.Save(ctx, rec, nil))
	}

	op1, op2 := uint(1), uint(2)
	save(DefectNormal, "cam-1", &op1, base.Add(1*time.Hour))
	save(DefectNormal, "cam-2", &op1, base.Add(2*time.Hour))
	save(DefectSolder, "cam-1", &op2, base.Add(3*time.Hour))
	save(DefectSolder, "cam-1", &op2, base.Add(26*time.Hour))

	day1Start := base
	day1End := base.Add(24 * time.Hour)
	solder := DefectSolder
	cam1 := "cam-1"

	count := func(f *SearchFilters) int64 {
		t.Helper()
		c, err := ds.Count(ctx, f)
		require.NoError(t, err)
		return c
	}

	assert.EqualValues(t, 4, count(nil))
	assert.EqualValues(t, 3, count(&SearchFilters{StartTime: &day1Start, EndTime: &day1End}))
	assert.EqualValues(t, 2, count(&SearchFilters{Defect: &solder}))
	assert.EqualValues(t, 3, count(&SearchFilters{Camera: &cam1}))
	assert.EqualValues(t, 2, count(&SearchFilters{OperatorID: &op2}))
	assert.EqualValues(t, 1, count(&SearchFilters{
		StartTime: &day1Start, EndTime: &day1End, Defect: &solder, Camera: &cam1,
	}))

	// Search and Count agree through the shared predicate path.
	f := &SearchFilters{Defect: &solder, Camera: &cam1}
	recs, err := ds.Search(ctx, f, 1, 100)
	require.NoError(t, err)
	assert.EqualValues(t, count(f), len(recs))

	// A record outside the range must not change the range count.
	before := count(&SearchFilters{StartTime: &day1Start, EndTime: &day1End})
	save(DefectDiscard, "cam-9", nil, base.Add(48*time.Hour))
	assert.Equal(t, before, count(&SearchFilters{StartTime: &day1Start, EndTime: &day1End}))
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	sqliteSettings := testSettings()
	store := New(sqliteSettings)
	_, ok := store.(*SQLiteStore)
	assert.True(t, ok)

	mysqlSettings := testSettings()
	mysqlSettings.Output.SQLite.Enabled = false
	mysqlSettings.Output.MySQL.Enabled = true
	store = New(mysqlSettings)
	_, ok = store.(*MySQLStore)
	assert.True(t, ok)

	none := testSettings()
	none.Output.SQLite.Enabled = false
	assert.Nil(t, New(none))
}

// testSettings returns settings for an on-disk store pointing at nothing in
// particular; used only to exercise backend selection.
func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "test.db"
	s.Output.MySQL.Host = "localhost"
	s.Output.MySQL.Database = "aoi"
	s.Sorting.BoxCapacity = 5
	return s
}
