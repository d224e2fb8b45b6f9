package session

import (
	"testing"

	"github.com/sweetpotato0/health-agent/message"
)

func TestSessionLifecycle(t *testing.T) {
	sess := New("u1")
	if sess.ID() == "" {
		t.Fatal("session ID not assigned")
	}
	if sess.UserID() != "u1" {
		t.Errorf("UserID = %q, want u1", sess.UserID())
	}
	if !sess.Active() {
		t.Error("new session should be active")
	}

	sess.Append(message.NewUserMessage("我最近总是头疼"))
	sess.Append(message.NewAssistantMessage("建议注意休息"), nil)
	if sess.Len() != 2 {
		t.Errorf("Len = %d, want 2 (nil message skipped)", sess.Len())
	}

	sess.Close()
	sess.Close() // second close is a no-op
	if sess.Active() {
		t.Error("closed session reported active")
	}
}

func TestSessionMessagesIsolated(t *testing.T) {
	sess := New("u1")
	sess.Append(message.NewUserMessage("最近睡不好"))

	msgs := sess.Messages()
	msgs[0].Content = "changed"
	if sess.Messages()[0].Content != "最近睡不好" {
		t.Error("Messages returned shared state")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	sess := New("u1")
	sess.Append(message.NewUserMessage("血压140/90正常吗"))
	sess.SetMeta("mode", "assessment")

	record := sess.Snapshot()
	revived := FromRecord(record)

	if revived.ID() != sess.ID() || revived.UserID() != "u1" {
		t.Errorf("identity lost: %s/%s", revived.ID(), revived.UserID())
	}
	if revived.Len() != 1 || revived.Messages()[0].Content != "血压140/90正常吗" {
		t.Errorf("history lost: %+v", revived.Messages())
	}
	mode, ok := revived.Meta("mode")
	if !ok || mode != "assessment" {
		t.Errorf("metadata lost: %v %v", mode, ok)
	}

	// Snapshot is detached from the live session.
	record.Messages[0].Content = "changed"
	if sess.Messages()[0].Content != "血压140/90正常吗" {
		t.Error("snapshot shares message state with session")
	}
}

func TestFromRecordDefaultsState(t *testing.T) {
	revived := FromRecord(&Record{ID: "s1", UserID: "u1"})
	if revived.State() != StateActive {
		t.Errorf("state = %s, want active", revived.State())
	}
	if FromRecord(nil) != nil {
		t.Error("FromRecord(nil) should be nil")
	}
}
