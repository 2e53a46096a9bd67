package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Hours are not wrapped at 24.
// Milliseconds are floored from the fractional part, so 1.9996 yields 999 and
// never carries into the next second. The fraction is first rounded to whole
// microseconds so binary float error (2.34 stored as 2.33999...) does not cost
// a millisecond. seconds must be non-negative.
func FormatTimestamp(seconds float64) string {
	whole := math.Floor(seconds)
	micros := math.Round((seconds - whole) * 1e6)
	millis := int64(math.Floor(micros / 1e3))
	if millis > 999 {
		millis = 999
	}
	total := int64(whole)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp is the inverse of FormatTimestamp. A period is accepted in
// place of the comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, frac, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || secs < 0 || secs > 59 || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}
