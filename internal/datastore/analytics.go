// analytics.go implements the aggregation reads over inspection data and
// the precomputed rollup tables.
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultTopDefectClasses is the number of classes returned when the caller
// does not specify topN.
const DefaultTopDefectClasses = 7

// rollup returns the rollup read cache, created on first use.
func (ds *DataStore) rollup() *cache.Cache {
	ds.rollupOnce.Do(func() {
		ds.rollupCache = cache.New(30*time.Second, time.Minute)
	})
	return ds.rollupCache
}

// StatisticsRange computes a point-in-time snapshot over [start, end) in a
// single conditional-aggregation query, so the per-category counts and the
// total always come from the same read.
func (ds *DataStore) StatisticsRange(ctx context.Context, start, end time.Time) (snap *StatisticsSnapshot, err error) {
	defer func(s time.Time) { ds.observe("statistics_range", s, err) }(time.Now())

	var row struct {
		Total          int64
		NormalCount    int64
		ComponentCount int64
		SolderCount    int64
		DiscardCount   int64
	}

	err = ds.DB.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN defect = ? THEN 1 ELSE 0 END), 0) AS normal_count,
			COALESCE(SUM(CASE WHEN defect = ? THEN 1 ELSE 0 END), 0) AS component_count,
			COALESCE(SUM(CASE WHEN defect = ? THEN 1 ELSE 0 END), 0) AS solder_count,
			COALESCE(SUM(CASE WHEN defect = ? THEN 1 ELSE 0 END), 0) AS discard_count
		FROM inspections
		WHERE inspected_at >= ? AND inspected_at < ?`,
		DefectNormal, DefectComponent, DefectSolder, DefectDiscard, start, end,
	).Scan(&row).Error
	if err != nil {
		err = storageError(err, "statistics_range")
		return nil, err
	}

	snap = &StatisticsSnapshot{
		TotalInspections:     row.Total,
		NormalCount:          row.NormalCount,
		ComponentDefectCount: row.ComponentCount,
		SolderDefectCount:    row.SolderCount,
		DiscardCount:         row.DiscardCount,
	}
	if snap.TotalInspections > 0 {
		snap.DefectRate = 100 * float64(snap.TotalInspections-snap.NormalCount) / float64(snap.TotalInspections)
	}
	return snap, nil
}

// DailyStatsForYear returns the daily rollup rows from Jan 1 to Dec 31 of
// the given year, ascending by date. Rollups for past years no longer
// change, so those reads are served from a short-lived cache.
func (ds *DataStore) DailyStatsForYear(ctx context.Context, year int) (stats []DailyStat, err error) {
	defer func(s time.Time) { ds.observe("daily_stats_for_year", s, err) }(time.Now())

	if year < 1 {
		err = validationError("year must be positive", "year", year)
		return nil, err
	}

	cacheKey := fmt.Sprintf("daily-stats:%d", year)
	closedYear := year < time.Now().Year()
	if closedYear {
		if cached, ok := ds.rollup().Get(cacheKey); ok {
			return cached.([]DailyStat), nil
		}
	}

	firstDay := fmt.Sprintf("%04d-01-01", year)
	lastDay := fmt.Sprintf("%04d-12-31", year)

	err = ds.DB.WithContext(ctx).
		Where("stat_date BETWEEN ? AND ?", firstDay, lastDay).
		Order("stat_date ASC").
		Find(&stats).Error
	if err != nil {
		err = storageError(err, "daily_stats_for_year", "year", year)
		return nil, err
	}

	if closedYear {
		ds.rollup().SetDefault(cacheKey, stats)
	}
	return stats, nil
}

// HourlyStatsRange returns the hourly rollup rows in the half-open interval
// [start, end), ascending by bucket.
func (ds *DataStore) HourlyStatsRange(ctx context.Context, start, end time.Time) (stats []HourlyStat, err error) {
	defer func(s time.Time) { ds.observe("hourly_stats_range", s, err) }(time.Now())

	err = ds.DB.WithContext(ctx).
		Where("stat_hour >= ? AND stat_hour < ?", start, end).
		Order("stat_hour ASC").
		Find(&stats).Error
	if err != nil {
		err = storageError(err, "hourly_stats_range")
		return nil, err
	}
	return stats, nil
}

// TopDefectClasses aggregates defect details over inspections in
// [start, end): per-class total detection count and average confidence,
// ordered by total descending. Count ties break on class name ascending so
// the ordering is deterministic across backends. Results are truncated to
// topN (DefaultTopDefectClasses when topN is not positive).
func (ds *DataStore) TopDefectClasses(ctx context.Context, start, end time.Time, topN int) (classes []DefectClassSummary, err error) {
	defer func(s time.Time) { ds.observe("top_defect_classes", s, err) }(time.Now())

	if topN <= 0 {
		topN = DefaultTopDefectClasses
	}

	err = ds.DB.WithContext(ctx).
		Table("defect_details").
		Select("defect_details.class_name AS class_name, SUM(defect_details.count) AS total_count, AVG(defect_details.avg_confidence) AS avg_confidence").
		Joins("JOIN inspections ON inspections.id = defect_details.inspection_id").
		Where("inspections.inspected_at >= ? AND inspections.inspected_at < ?", start, end).
		Group("defect_details.class_name").
		Order("total_count DESC, class_name ASC").
		Limit(topN).
		Scan(&classes).Error
	if err != nil {
		err = storageError(err, "top_defect_classes")
		return nil, err
	}
	return classes, nil
}

// DefectRateHistoryRange returns the defect-rate time series in [start, end),
// ascending by recording time. Pure passthrough read, no recomputation.
func (ds *DataStore) DefectRateHistoryRange(ctx context.Context, start, end time.Time) (points []DefectRateHistory, err error) {
	defer func(s time.Time) { ds.observe("defect_rate_history", s, err) }(time.Now())

	err = ds.DB.WithContext(ctx).
		Where("recorded_at >= ? AND recorded_at < ?", start, end).
		Order("recorded_at ASC").
		Find(&points).Error
	if err != nil {
		err = storageError(err, "defect_rate_history")
		return nil, err
	}
	return points, nil
}
