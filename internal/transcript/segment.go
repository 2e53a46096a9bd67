// Package transcript holds the timed text segments produced by transcription
// and carried through translation into subtitle files.
package transcript

import (
	"fmt"
	"math"
)

// Segment is one timed unit of speech. Times are seconds from the start of
// the video.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns End minus Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Validate checks that every segment has a non-negative start and ends after
// it begins. Order is not checked; segments are emitted as given.
func Validate(segments []Segment) error {
	for i, seg := range segments {
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) || math.IsInf(seg.Start, 0) || math.IsInf(seg.End, 0) {
			return fmt.Errorf("segment %d: non-finite timing", i+1)
		}
		if seg.Start < 0 {
			return fmt.Errorf("segment %d: negative start %.3f", i+1, seg.Start)
		}
		if seg.End <= seg.Start {
			return fmt.Errorf("segment %d: end %.3f not after start %.3f", i+1, seg.End, seg.Start)
		}
	}
	return nil
}

// WithTexts returns a copy of segments whose text is replaced by texts,
// keeping every timing unchanged. texts must have the same length.
func WithTexts(segments []Segment, texts []string) ([]Segment, error) {
	if len(texts) != len(segments) {
		return nil, fmt.Errorf("text count %d does not match segment count %d", len(texts), len(segments))
	}
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = Segment{Start: seg.Start, End: seg.End, Text: texts[i]}
	}
	return out, nil
}
