package subtitles

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"subflow/internal/fileutil"
	"subflow/internal/transcript"
)

// Unicode bidi controls used to embed right-to-left cue text.
const (
	rightToLeftEmbedding     = "\u202b"
	popDirectionalFormatting = "\u202c"
)

const fileMode = 0o644

// Serialize writes segments to w as numbered SRT cues. With rtl set, each
// cue's text is trimmed and wrapped once in RLE/PDF controls; otherwise text is
// emitted untouched. No segments produce no output.
func Serialize(w io.Writer, segments []transcript.Segment, rtl bool) error {
	bw := bufio.NewWriter(w)
	for i, seg := range segments {
		bw.WriteString(strconv.Itoa(i + 1))
		bw.WriteByte('\n')
		bw.WriteString(FormatTimestamp(seg.Start))
		bw.WriteString(" --> ")
		bw.WriteString(FormatTimestamp(seg.End))
		bw.WriteByte('\n')
		bw.WriteString(cueText(seg.Text, rtl))
		bw.WriteString("\n\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// Encode returns the serialized form of segments.
func Encode(segments []transcript.Segment, rtl bool) []byte {
	var buf bytes.Buffer
	_ = Serialize(&buf, segments, rtl)
	return buf.Bytes()
}

// Write replaces the file at path with the serialized segments. The parent
// directory must already exist.
func Write(path string, segments []transcript.Segment, rtl bool) error {
	return fileutil.Overwrite(path, fileMode, func(w io.Writer) error {
		return Serialize(w, segments, rtl)
	})
}

func cueText(text string, rtl bool) string {
	if !rtl {
		return text
	}
	return rightToLeftEmbedding + strings.TrimSpace(text) + popDirectionalFormatting
}
