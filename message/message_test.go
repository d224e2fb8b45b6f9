package message

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "Hello, world!")

	if msg.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, msg.Role)
	}

	if msg.Content != "Hello, world!" {
		t.Errorf("Expected content 'Hello, world!', got '%s'", msg.Content)
	}

	if msg.ID == "" {
		t.Error("Expected non-empty ID")
	}

	if msg.CreatedAt.IsZero() {
		t.Error("Expected non-zero created time")
	}
}

func TestConstructorRoles(t *testing.T) {
	if got := NewUserMessage("hi").Role; got != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, got)
	}
	if got := NewAssistantMessage("hi").Role; got != RoleAssistant {
		t.Errorf("Expected role %s, got %s", RoleAssistant, got)
	}
	if got := NewSystemMessage("hi").Role; got != RoleSystem {
		t.Errorf("Expected role %s, got %s", RoleSystem, got)
	}
}

func TestTextNilReceiver(t *testing.T) {
	var msg *Message
	if got := msg.Text(); got != "" {
		t.Errorf("Expected empty text from nil message, got '%s'", got)
	}
}

func TestCloneIndependence(t *testing.T) {
	msg := NewUserMessage("original")
	msg.Metadata["key"] = "value"

	cloned := Clone(msg)
	cloned.Metadata["key"] = "changed"
	cloned.Content = "changed"

	if msg.Content != "original" {
		t.Errorf("Clone mutated the original content: %s", msg.Content)
	}
	if msg.Metadata["key"] != "value" {
		t.Errorf("Clone shares metadata with the original: %v", msg.Metadata["key"])
	}
}

func TestCloneMessages(t *testing.T) {
	if got := CloneMessages(nil); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}

	msgs := []*Message{NewUserMessage("a"), NewAssistantMessage("b")}
	clones := CloneMessages(msgs)

	if len(clones) != 2 {
		t.Fatalf("Expected 2 clones, got %d", len(clones))
	}
	clones[0].Content = "changed"
	if msgs[0].Content != "a" {
		t.Errorf("CloneMessages mutated the original: %s", msgs[0].Content)
	}
}
