package systems

import "math"

// limitSpeed scales (vx, vy) down so its magnitude does not exceed maxSpeed.
func limitSpeed(vx, vy, maxSpeed float64) (float64, float64) {
	mag := math.Hypot(vx, vy)
	if mag > maxSpeed && mag > 0 {
		s := maxSpeed / mag
		return vx * s, vy * s
	}
	return vx, vy
}

// normalize returns the unit vector of (x, y), or zero for a zero vector.
func normalize(x, y float64) (float64, float64) {
	mag := math.Hypot(x, y)
	if mag < 1e-9 {
		return 0, 0
	}
	return x / mag, y / mag
}
