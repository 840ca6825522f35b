package utils

import (
	"math"
)

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(p))
	return
}

// Max and Min of a slice, both panic on an empty slice
func Max(data []float64) (max float64) {
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

func Min(data []float64) (min float64) {
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

// Bound clamps values below lower to lower, returns the number of values changed
func Bound(data []float64, lower float64) (nBounded int) {
	for i, val := range data {
		if val < lower {
			data[i] = lower
			nBounded++
		}
	}
	return
}
