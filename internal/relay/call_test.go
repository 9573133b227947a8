package relay

import (
	"testing"
	"time"
)

func TestCallAppendPreservesOrder(t *testing.T) {
	call := NewCall("c1", "alice", time.Now())
	call.Append(SourceMic, "one")
	call.Append(SourceTab, "two")
	call.Append(SourceMic, "three")

	mic := call.Utterances(SourceMic)
	if len(mic) != 2 || mic[0] != "one" || mic[1] != "three" {
		t.Fatalf("unexpected mic utterances: %v", mic)
	}
	tab := call.Utterances(SourceTab)
	if len(tab) != 1 || tab[0] != "two" {
		t.Fatalf("unexpected tab utterances: %v", tab)
	}
}

func TestCallRejectsWritesAfterEnd(t *testing.T) {
	call := NewCall("c1", "alice", time.Now())
	if !call.Append(SourceMic, "before") {
		t.Fatal("append before end should succeed")
	}
	call.End()
	call.End()
	if call.Append(SourceMic, "after") {
		t.Fatal("append after end should be rejected")
	}
	if got := call.Utterances(SourceMic); len(got) != 1 {
		t.Fatalf("unexpected utterances: %v", got)
	}
	if !call.Ended() {
		t.Fatal("expected call to report ended")
	}
}

func TestTranscriptTextSections(t *testing.T) {
	call := NewCall("c1", "alice", time.Now())
	call.Append(SourceMic, "hello")
	call.Append(SourceMic, "how can I help")
	call.Append(SourceTab, "world")

	want := "[mic]\nhello\nhow can I help\n\n[tab]\nworld"
	if got := call.TranscriptText(); got != want {
		t.Fatalf("unexpected transcript:\n%q\nwant:\n%q", got, want)
	}
}

func TestTranscriptTextEmpty(t *testing.T) {
	call := NewCall("c1", "alice", time.Now())
	if got := call.TranscriptText(); got != "" {
		t.Fatalf("expected empty transcript, got %q", got)
	}
}
