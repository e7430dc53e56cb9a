package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

func TestNewest(t *testing.T) {
	got := newest([]uint32{1, 2, 3, 4}, 2)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("got=%v", got)
	}
	if got := newest([]uint32{1, 2}, 0); len(got) != 2 {
		t.Fatalf("got=%v", got)
	}
}

func TestToFetched(t *testing.T) {
	msg := &imap.Message{
		Uid:          42,
		InternalDate: time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("GST", 4*3600)),
		Envelope: &imap.Envelope{
			Subject: "RFQ",
			From: []*imap.Address{
				{PersonalName: "Buyer", MailboxName: "buyer", HostName: "example.com"},
				{MailboxName: "ops", HostName: "example.com"},
			},
		},
	}
	got := toFetched(msg, []byte("raw"))
	if got.MessageID != "imap-42" || got.Subject != "RFQ" || got.ReceivedAt != "2025-01-01T23:04:05Z" {
		t.Fatalf("got=%+v", got)
	}
	if got.From != "Buyer <buyer@example.com>, ops@example.com" {
		t.Fatalf("from=%q", got.From)
	}
}
