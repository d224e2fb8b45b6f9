package oracle

import "testing"

type verdict struct {
	RiskLevel string `json:"risk_level"`
	Reason    string `json:"reason"`
}

func TestDecodeJSONPlain(t *testing.T) {
	out, err := DecodeJSON[verdict](`{"risk_level":"low","reason":"ok"}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.RiskLevel != "low" || out.Reason != "ok" {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

func TestDecodeJSONStripsFences(t *testing.T) {
	cases := []string{
		"```json\n{\"risk_level\":\"high\"}\n```",
		"```JSON\n{\"risk_level\":\"high\"}\n```",
		"```\n{\"risk_level\":\"high\"}\n```",
		"  {\"risk_level\":\"high\"}  ",
	}
	for _, raw := range cases {
		out, err := DecodeJSON[verdict](raw)
		if err != nil {
			t.Fatalf("decode %q failed: %v", raw, err)
		}
		if out.RiskLevel != "high" {
			t.Fatalf("decode %q: got %+v", raw, out)
		}
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	if _, err := DecodeJSON[verdict]("not json at all"); err == nil {
		t.Fatal("expected error for malformed output")
	}
}
