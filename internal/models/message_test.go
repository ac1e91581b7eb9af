package models

import (
	"database/sql"
	"testing"
)

func TestStatusCanAdvanceOnlyForward(t *testing.T) {
	cases := []struct {
		from, to MessageStatus
		want     bool
	}{
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusRead, true},
		{StatusDelivered, StatusRead, true},
		{StatusDelivered, StatusSent, false},
		{StatusRead, StatusDelivered, false},
		{StatusRead, StatusSent, false},
		{StatusSent, StatusSent, false},
		{StatusRead, StatusRead, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvance(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestStatusEarlier(t *testing.T) {
	earlier := StatusRead.Earlier()
	if len(earlier) != 2 {
		t.Fatalf("expected sent and delivered before read, got %v", earlier)
	}
	if len(StatusSent.Earlier()) != 0 {
		t.Fatalf("nothing precedes sent")
	}
}

func TestRenderedSuppressesDeletedContent(t *testing.T) {
	msg := Message{
		Type:      TypeImage,
		Content:   "Image",
		ImageURL:  "https://cdn.example/img.png",
		Deleted:   true,
		Reactions: []Reaction{{UserID: "bob", Type: "heart"}},
	}

	rendered := msg.Rendered()
	if rendered.Content != DeletedPlaceholder {
		t.Fatalf("expected placeholder content, got %q", rendered.Content)
	}
	if rendered.ImageURL != "" {
		t.Fatalf("expected attachment URL to be cleared")
	}
	if rendered.Reactions != nil {
		t.Fatalf("expected reactions to be cleared")
	}
	if msg.Content == DeletedPlaceholder {
		t.Fatalf("Rendered must not mutate the original")
	}
}

func TestRenderedLiftsReplySnapshot(t *testing.T) {
	msg := Message{
		Content:      "sure, tomorrow works",
		ReplyToID:    sql.NullInt64{Int64: 41, Valid: true},
		ReplyContent: "can we meet tomorrow?",
		ReplySender:  "Dr. Reyes",
		ReplyType:    "text",
	}

	rendered := msg.Rendered()
	if rendered.ReplyTo == nil {
		t.Fatalf("expected reply snapshot to be lifted")
	}
	if rendered.ReplyTo.MessageID != 41 || rendered.ReplyTo.SenderName != "Dr. Reyes" {
		t.Fatalf("unexpected snapshot: %+v", rendered.ReplyTo)
	}
}

func TestRenderedWithoutReply(t *testing.T) {
	rendered := Message{Content: "hi"}.Rendered()
	if rendered.ReplyTo != nil {
		t.Fatalf("expected no snapshot for a plain message")
	}
}
