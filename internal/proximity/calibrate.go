package proximity

// CalibrationMarginDBm is how much weaker than the at-the-desk baseline the
// lock threshold sits.
const CalibrationMarginDBm = 15

// RecommendThreshold derives a lock threshold from a baseline reading taken
// while the device is at the user's normal working distance.
func RecommendThreshold(observedDBm int) int {
	return observedDBm - CalibrationMarginDBm
}
