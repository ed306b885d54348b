/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strconv"
)

var sizeUnits = []string{"kB", "MB", "GB", "TB", "PB", "EB"}

// humanReadableSize formats n using SI prefixes, one decimal place.
func humanReadableSize(n int64) string {
	if n < 1000 {
		return strconv.FormatInt(n, 10) + " B"
	}

	v, i := float64(n)/1000, 0
	for v >= 1000 && i < len(sizeUnits)-1 {
		v /= 1000
		i++
	}

	return strconv.FormatFloat(v, 'f', 1, 64) + " " + sizeUnits[i]
}
