// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

// ClampInt bounds n to the inclusive range [lo, hi].
//
// Example:
//
//	utils.ClampInt(15, 1, 10) // returns 10
//	utils.ClampInt(0, 1, 10)  // returns 1
//	utils.ClampInt(5, 1, 10)  // returns 5
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
