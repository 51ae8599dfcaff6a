package asr

import "testing"

func sampleTranscription() *Transcription {
	return &Transcription{
		Text:     "hello world",
		Language: "en",
		Segments: []Segment{
			{Index: 0, Start: 0, End: 2.5, Text: "hello"},
			{Index: 1, Start: 2.5, End: 3661.25, Text: "world"},
		},
	}
}

func TestSRT(t *testing.T) {
	want := "1\n" +
		"00:00:00,000 --> 00:00:02,500\n" +
		"hello\n\n" +
		"2\n" +
		"00:00:02,500 --> 01:01:01,250\n" +
		"world\n\n"

	if got := sampleTranscription().SRT(); got != want {
		t.Fatalf("SRT output mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestVTT(t *testing.T) {
	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:02.500\n" +
		"hello\n\n" +
		"00:00:02.500 --> 01:01:01.250\n" +
		"world\n\n"

	if got := sampleTranscription().VTT(); got != want {
		t.Fatalf("VTT output mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestCaptionsEmptySegments(t *testing.T) {
	tr := &Transcription{}
	if got := tr.SRT(); got != "" {
		t.Fatalf("empty SRT = %q", got)
	}
	if got := tr.VTT(); got != "WEBVTT\n\n" {
		t.Fatalf("empty VTT = %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		sep     byte
		want    string
	}{
		{0, ',', "00:00:00,000"},
		{0.001, ',', "00:00:00,001"},
		{1.5, '.', "00:00:01.500"},
		{61.2, ',', "00:01:01,200"},
		{3661.25, '.', "01:01:01.250"},
		{-1, ',', "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := formatTimestamp(tc.seconds, tc.sep); got != tc.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestCaptionsDeterministic(t *testing.T) {
	tr := sampleTranscription()
	if tr.SRT() != tr.SRT() {
		t.Fatal("SRT rendering is not deterministic")
	}
	if tr.VTT() != tr.VTT() {
		t.Fatal("VTT rendering is not deterministic")
	}
}
