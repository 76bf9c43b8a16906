package packet

// Checksum adds data to sum as a sequence of big-endian 16-bit words. An odd
// trailing byte is padded with zero. Chained calls must pass even-length
// slices for every segment but the last.
func Checksum(data []byte, sum uint32) uint32 {
	n := len(data) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if len(data)&1 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	return sum
}

// Wrap folds the carries back into the low 16 bits and complements the result.
func Wrap(sum uint32) uint16 {
	for sum > 0xffff {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
