package playback

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	cases := []struct {
		name   string
		header string
		size   int64
		want   *Range
		err    error
	}{
		{"no header", "", 1000, nil, nil},
		{"full range", "bytes=0-499", 1000, &Range{0, 499}, nil},
		{"open ended", "bytes=500-", 1000, &Range{500, 999}, nil},
		{"suffix", "bytes=-200", 1000, &Range{800, 999}, nil},
		{"suffix larger than file", "bytes=-5000", 1000, &Range{0, 999}, nil},
		{"end clamped", "bytes=0-5000", 1000, &Range{0, 999}, nil},
		{"multi range uses first", "bytes=0-99,200-299", 1000, &Range{0, 99}, nil},
		{"start past end of file", "bytes=1000-", 1000, nil, ErrUnsatisfiable},
		{"inverted", "bytes=500-100", 1000, nil, ErrUnsatisfiable},
		{"not bytes", "lines=0-10", 1000, nil, ErrInvalidRange},
		{"garbage", "bytes=abc-def", 1000, nil, ErrInvalidRange},
		{"empty suffix", "bytes=-", 1000, nil, ErrInvalidRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRange(tc.header, tc.size)
			if !errors.Is(err, tc.err) {
				t.Fatalf("error = %v, want %v", err, tc.err)
			}
			if tc.want == nil {
				if got != nil {
					t.Fatalf("range = %+v, want nil", got)
				}
				return
			}
			if got == nil || *got != *tc.want {
				t.Fatalf("range = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRange_ContentHeaders(t *testing.T) {
	r := Range{Start: 100, End: 199}
	if got := r.ContentLength(); got != 100 {
		t.Fatalf("ContentLength() = %d, want 100", got)
	}
	if got := r.ContentRange(1000); got != "bytes 100-199/1000" {
		t.Fatalf("ContentRange() = %q", got)
	}
}
