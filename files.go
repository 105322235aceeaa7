/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strconv"
)

// formatBytes renders n in binary units, e.g. "8.0 MiB".
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}

	value, suffix := float64(n), 0
	for value >= unit && suffix < len("KMGTPE") {
		value /= unit
		suffix++
	}

	return strconv.FormatFloat(value, 'f', 1, 64) + " " + string("KMGTPE"[suffix-1]) + "iB"
}
