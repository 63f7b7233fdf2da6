// Package proximity turns raw signal readings into distance buckets and
// decides when a device has been gone long enough to lock the host.
package proximity

import "time"

// Fixed display breakpoints in dBm, strongest first.
const (
	ExcellentMinDBm = -50
	GoodMinDBm      = -60
	FairMinDBm      = -70
	WeakMinDBm      = -80
)

// Bucket is a coarse signal quality class.
type Bucket int

const (
	BucketAbsent Bucket = iota
	BucketVeryWeak
	BucketWeak
	BucketFair
	BucketGood
	BucketExcellent
)

func (b Bucket) String() string {
	switch b {
	case BucketExcellent:
		return "EXCELLENT"
	case BucketGood:
		return "GOOD"
	case BucketFair:
		return "FAIR"
	case BucketWeak:
		return "WEAK"
	case BucketVeryWeak:
		return "VERY_WEAK"
	default:
		return "ABSENT"
	}
}

// Distance returns the human distance label shown for the bucket.
func (b Bucket) Distance() string {
	switch b {
	case BucketExcellent:
		return "Very Close (<1m)"
	case BucketGood:
		return "Close (1-3m)"
	case BucketFair:
		return "Medium (3-10m)"
	case BucketWeak:
		return "Far (10-20m)"
	case BucketVeryWeak:
		return "Very Far (20m+)"
	default:
		return "Unknown"
	}
}

// Reading is the outcome of one scan attempt.
type Reading struct {
	RSSI    int // dBm, meaningful only when Present
	Present bool
	At      time.Time
}

// Observed builds a reading for a device that answered the scan.
func Observed(rssi int, at time.Time) Reading {
	return Reading{RSSI: rssi, Present: true, At: at}
}

// Absent builds a reading for a scan that did not see the device.
func Absent(at time.Time) Reading {
	return Reading{At: at}
}

// Classification is a Reading placed into a bucket and compared against the
// configured threshold.
type Classification struct {
	Bucket   Bucket
	Distance string
	Reading  Reading
	// Below is true when the sample counts toward the weak streak.
	Below bool
}

// Classify buckets r and compares it with thresholdDBm. The threshold is
// independent of the display breakpoints.
func Classify(r Reading, thresholdDBm int) Classification {
	b := bucketFor(r)
	return Classification{
		Bucket:   b,
		Distance: b.Distance(),
		Reading:  r,
		Below:    BelowThreshold(r, thresholdDBm),
	}
}

// BelowThreshold reports whether r is absent or strictly weaker than thresholdDBm.
func BelowThreshold(r Reading, thresholdDBm int) bool {
	return !r.Present || r.RSSI < thresholdDBm
}

func bucketFor(r Reading) Bucket {
	switch {
	case !r.Present:
		return BucketAbsent
	case r.RSSI >= ExcellentMinDBm:
		return BucketExcellent
	case r.RSSI >= GoodMinDBm:
		return BucketGood
	case r.RSSI >= FairMinDBm:
		return BucketFair
	case r.RSSI >= WeakMinDBm:
		return BucketWeak
	default:
		return BucketVeryWeak
	}
}
