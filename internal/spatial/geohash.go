package spatial

// Base32 encoding for geohash
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Geohash encodes p into a geohash of the given precision (1-12 characters).
// Precision 7 cells are roughly 150m x 150m.
func Geohash(p Point, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	hash := make([]byte, 0, precision)
	bits, ch := 0, 0
	for even := true; len(hash) < precision; even = !even {
		// bits alternate between longitude and latitude, longitude first
		value, rng := p.Lat, &latRange
		if even {
			value, rng = p.Lon, &lonRange
		}

		mid := (rng[0] + rng[1]) / 2
		if value > mid {
			ch |= 1 << (4 - bits)
			rng[0] = mid
		} else {
			rng[1] = mid
		}

		bits++
		if bits == 5 {
			hash = append(hash, base32[ch])
			bits, ch = 0, 0
		}
	}

	return string(hash)
}
