package proximity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBreakpoints(t *testing.T) {
	tests := []struct {
		rssi     int
		bucket   Bucket
		distance string
	}{
		{-20, BucketExcellent, "Very Close (<1m)"},
		{-50, BucketExcellent, "Very Close (<1m)"},
		{-51, BucketGood, "Close (1-3m)"},
		{-60, BucketGood, "Close (1-3m)"},
		{-61, BucketFair, "Medium (3-10m)"},
		{-70, BucketFair, "Medium (3-10m)"},
		{-71, BucketWeak, "Far (10-20m)"},
		{-80, BucketWeak, "Far (10-20m)"},
		{-81, BucketVeryWeak, "Very Far (20m+)"},
		{-127, BucketVeryWeak, "Very Far (20m+)"},
	}
	for _, tt := range tests {
		c := Classify(Observed(tt.rssi, time.Time{}), -70)
		assert.Equal(t, tt.bucket, c.Bucket, "rssi %d", tt.rssi)
		assert.Equal(t, tt.distance, c.Distance, "rssi %d", tt.rssi)
	}
}

func TestClassifyAbsent(t *testing.T) {
	c := Classify(Absent(time.Time{}), -70)
	assert.Equal(t, BucketAbsent, c.Bucket)
	assert.Equal(t, "Unknown", c.Distance)
	assert.Equal(t, "ABSENT", c.Bucket.String())
	assert.True(t, c.Below)
}

// Buckets must never get stronger as the signal gets weaker, and every
// value lands in exactly one of the five signal buckets.
func TestClassifyMonotonicWithoutGaps(t *testing.T) {
	prev := BucketExcellent
	for s := 10; s >= -250; s-- {
		c := Classify(Observed(s, time.Time{}), -70)
		assert.NotEqual(t, BucketAbsent, c.Bucket, "rssi %d", s)
		assert.LessOrEqual(t, c.Bucket, prev, "rssi %d", s)
		assert.Equal(t, c, Classify(Observed(s, time.Time{}), -70), "rssi %d not deterministic", s)
		prev = c.Bucket
	}
}

func TestBelowThresholdIsSeparateFromBuckets(t *testing.T) {
	// -65 is FAIR on the display scale but still fine against a -68 threshold.
	c := Classify(Observed(-65, time.Time{}), -68)
	assert.Equal(t, BucketFair, c.Bucket)
	assert.False(t, c.Below)

	assert.False(t, BelowThreshold(Observed(-60, time.Time{}), -60), "equal to threshold is not below")
	assert.True(t, BelowThreshold(Observed(-61, time.Time{}), -60))
}

func TestAbsentMatchesVeryWeakReading(t *testing.T) {
	for _, threshold := range []int{-40, -60, -100} {
		assert.Equal(t,
			BelowThreshold(Observed(-200, time.Time{}), threshold),
			BelowThreshold(Absent(time.Time{}), threshold),
			"threshold %d", threshold)
	}
}

func TestRecommendThreshold(t *testing.T) {
	assert.Equal(t, -60, RecommendThreshold(-45))
	assert.Equal(t, -45, RecommendThreshold(-30))
	assert.Equal(t, -95, RecommendThreshold(-80))
}
