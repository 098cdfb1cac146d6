package models

import "time"

// SystemMetrics is the ranking engine snapshot served to administrators.
// Computations counts finished computations by kind (students, institutions,
// campuses, average, student_score).
type SystemMetrics struct {
	CacheHitRatio       float64           `json:"cache_hit_ratio"`
	CacheHits           uint64            `json:"cache_hits"`
	CacheMisses         uint64            `json:"cache_misses"`
	ResultFetchFailures uint64            `json:"result_fetch_failures"`
	Computations        map[string]uint64 `json:"computations"`
	Goroutines          int               `json:"goroutines"`
	GeneratedAt         time.Time         `json:"generated_at"`
}
