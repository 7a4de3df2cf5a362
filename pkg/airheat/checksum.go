// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

// Checksum computes the additive frame checksum: the sum of all bytes
// modulo 256. It covers everything from the header byte through the
// last payload byte.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}
