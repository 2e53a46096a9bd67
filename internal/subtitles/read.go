package subtitles

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
)

// CountCues counts timing lines in the SRT at path. Counting timing lines
// rather than blank-line blocks keeps cue text with embedded blank lines from
// inflating the total.
func CountCues(path string) (int, error) {
	count := 0
	err := scanTimings(path, func(_, _ float64) {
		count++
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Bounds returns the earliest cue start and latest cue end in the SRT at path.
// A file with no cues yields zero bounds.
func Bounds(path string) (float64, float64, error) {
	first := math.Inf(1)
	var last float64
	found := false
	err := scanTimings(path, func(start, end float64) {
		found = true
		if start < first {
			first = start
		}
		if end > last {
			last = end
		}
	})
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, nil
	}
	return first, last, nil
}

func scanTimings(path string, visit func(start, end float64)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read srt: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		start, end, ok := parseTimingLine(scanner.Text())
		if ok {
			visit(start, end)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read srt: %w", err)
	}
	return nil
}

func parseTimingLine(line string) (float64, float64, bool) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, false
	}
	start, err := ParseTimestamp(left)
	if err != nil {
		return 0, 0, false
	}
	end, err := ParseTimestamp(right)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
