package chatparse

import (
	"errors"
	"testing"
)

func corpusFrom(msgs ...Message) *Corpus {
	c := &Corpus{Participants: make(map[string]struct{})}
	for _, m := range msgs {
		c.Participants[m.Sender] = struct{}{}
		if m.IsSystem {
			c.SystemCount++
			continue
		}
		c.Messages = append(c.Messages, m)
	}
	return c
}

func TestFilterBySender_KeepsOnlySenderNonSystem(t *testing.T) {
	corpus := corpusFrom(
		Message{Sender: "Anna", Content: "a longer message from anna"},
		Message{Sender: "Bartek", Content: "a message from someone else"},
		Message{Sender: "Anna", Content: "ok"}, // too short
		Message{Sender: "Anna", Content: "another message from anna"},
	)

	filtered, err := FilterBySender(corpus, "Anna", 0)
	if err != nil {
		t.Fatalf("FilterBySender: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(filtered))
	}
	for _, m := range filtered {
		if m.Sender != "Anna" {
			t.Fatalf("unexpected sender %q", m.Sender)
		}
	}
}

func TestFilterBySender_StripsDirectionalMarks(t *testing.T) {
	corpus := corpusFrom(
		Message{Sender: "Anna", Content: "‎hello‏ world‬"},
	)

	filtered, err := FilterBySender(corpus, "Anna", 0)
	if err != nil {
		t.Fatalf("FilterBySender: %v", err)
	}
	if filtered[0].Content != "hello world" {
		t.Fatalf("content = %q, want %q", filtered[0].Content, "hello world")
	}
}

func TestFilterBySender_Idempotent(t *testing.T) {
	corpus := corpusFrom(
		Message{Sender: "Anna", Content: "first message of several"},
		Message{Sender: "Anna", Content: "second message of several"},
	)

	once, err := FilterBySender(corpus, "Anna", 0)
	if err != nil {
		t.Fatalf("first filter: %v", err)
	}

	again, err := FilterBySender(corpusFrom(once...), "Anna", 0)
	if err != nil {
		t.Fatalf("second filter: %v", err)
	}
	if len(again) != len(once) {
		t.Fatalf("second pass changed length: %d vs %d", len(again), len(once))
	}
	for i := range once {
		if again[i].Content != once[i].Content {
			t.Fatalf("second pass changed content at %d: %q vs %q", i, again[i].Content, once[i].Content)
		}
	}
}

func TestFilterBySender_NoMessages(t *testing.T) {
	corpus := corpusFrom(
		Message{Sender: "Sam", Content: "a message from sam only"},
	)

	_, err := FilterBySender(corpus, "Alex", 0)
	var noMsgs *NoMessagesError
	if !errors.As(err, &noMsgs) {
		t.Fatalf("expected NoMessagesError, got %v", err)
	}
	if noMsgs.Participant != "Alex" {
		t.Fatalf("Participant = %q, want Alex", noMsgs.Participant)
	}
}

func TestFilterBySender_Insufficient(t *testing.T) {
	corpus := corpusFrom(
		Message{Sender: "Anna", Content: "message number one here"},
		Message{Sender: "Anna", Content: "message number two here"},
		Message{Sender: "Anna", Content: "message number three here"},
	)

	_, err := FilterBySender(corpus, "Anna", 10)
	var insufficient *InsufficientMessagesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientMessagesError, got %v", err)
	}
	if insufficient.Count != 3 || insufficient.Min != 10 {
		t.Fatalf("got Count=%d Min=%d, want 3/10", insufficient.Count, insufficient.Min)
	}
}

func TestStripDirectionalMarks_PlainTextUntouched(t *testing.T) {
	in := "zażółć gęślą jaźń 🙂"
	if got := StripDirectionalMarks(in); got != in {
		t.Fatalf("StripDirectionalMarks changed plain text: %q", got)
	}
}
