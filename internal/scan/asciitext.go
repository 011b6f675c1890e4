package scan

// FindAsciiRuns scans data for maximal runs of printable ASCII bytes
// (0x20..0x7E) of length >= minLen, returning each run as a string. This is
// the `-text N` supplemented feature (SPEC_FULL.md §6.1), grounded on
// original_source/BlockChain.cpp's mSearchForText block-scanning behavior.
func FindAsciiRuns(data []byte, minLen int) []string {
	if minLen <= 0 {
		return nil
	}
	var runs []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minLen {
			runs = append(runs, string(data[start:end]))
		}
		start = -1
	}
	for i, b := range data {
		if b >= 0x20 && b <= 0x7E {
			if start < 0 {
				start = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(data))
	return runs
}
