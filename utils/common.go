package utils

const (
	SMALL  = 1.e-15
	VSMALL = 1.e-300
	GREAT  = 1.e+15
)
