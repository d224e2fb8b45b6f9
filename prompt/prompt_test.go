package prompt

import (
	"strings"
	"testing"
)

func TestTemplateRender(t *testing.T) {
	tmpl, err := NewTemplate("greeting", "你好，{{.Name}}！")
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	out, err := tmpl.Render(map[string]interface{}{"Name": "张三"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "你好，张三！" {
		t.Errorf("Render() = %q, want %q", out, "你好，张三！")
	}
}

func TestNewTemplateRejectsBadSyntax(t *testing.T) {
	if _, err := NewTemplate("bad", "{{.Unclosed"); err == nil {
		t.Fatalf("NewTemplate() = nil error, want parse failure")
	}
}

func TestMustTemplatePanicsOnBadSyntax(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("MustTemplate() did not panic on bad syntax")
		}
	}()
	MustTemplate("bad", "{{.Unclosed")
}

func TestManagerRegisterAndRender(t *testing.T) {
	m := NewManager()
	if err := m.RegisterString("advice", "针对{{.Symptom}}的建议"); err != nil {
		t.Fatalf("RegisterString() error = %v", err)
	}

	out, err := m.Render("advice", map[string]interface{}{"Symptom": "头晕"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "头晕") {
		t.Errorf("Render() = %q, want symptom interpolated", out)
	}
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	m := NewManager()
	if err := m.RegisterString("dup", "第一版"); err != nil {
		t.Fatalf("RegisterString() error = %v", err)
	}
	if err := m.RegisterString("dup", "第二版"); err == nil {
		t.Errorf("RegisterString() accepted a duplicate name")
	}
}

func TestManagerRenderUnknownTemplate(t *testing.T) {
	m := NewManager()
	if _, err := m.Render("missing", nil); err == nil {
		t.Errorf("Render() = nil error for unknown template")
	}
}
