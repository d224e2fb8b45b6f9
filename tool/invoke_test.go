package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/health-agent/oracle"
)

func planOracle(t *testing.T, calls *int, reply string, err error) oracle.Client {
	t.Helper()
	return oracle.Func(func(ctx context.Context, prompt string) (string, error) {
		*calls++
		if err != nil {
			return "", err
		}
		if !strings.Contains(prompt, "calculate_bmi") {
			t.Errorf("prompt does not describe the tools: %q", prompt)
		}
		return reply, nil
	})
}

func healthRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := RegisterHealthTools(r); err != nil {
		t.Fatalf("RegisterHealthTools: %v", err)
	}
	return r
}

func TestInvokeRunsPlannedCalls(t *testing.T) {
	var calls int
	reply := "```json\n[" +
		`{"name": "calculate_bmi", "args": {"height_cm": 170, "weight_kg": 70}},` +
		`{"name": "calculate_target_heart_rate", "args": {"age": 30}}` +
		"]\n```"
	inv := NewInvoker(healthRegistry(t), planOracle(t, &calls, reply, nil), nil)

	out := inv.Invoke(context.Background(), "我170cm，70kg，30岁，算一下BMI和运动心率")
	if calls != 1 {
		t.Fatalf("oracle calls = %d, want 1", calls)
	}
	parts := strings.Split(out, "\n\n")
	if len(parts) < 2 {
		t.Fatalf("expected two results separated by blank line:\n%s", out)
	}
	if !strings.HasPrefix(parts[0], "📊 BMI: 24.22") {
		t.Errorf("first result = %q", parts[0])
	}
	if !strings.Contains(out, "📊 最大心率: 190") {
		t.Errorf("second result missing:\n%s", out)
	}
}

func TestInvokeIsolatesFailingCall(t *testing.T) {
	var calls int
	reply := `[
		{"name": "no_such_tool", "args": {}},
		{"name": "calculate_bmi", "args": {"height_cm": 170, "weight_kg": 70}}
	]`
	inv := NewInvoker(healthRegistry(t), planOracle(t, &calls, reply, nil), nil)

	out := inv.Invoke(context.Background(), "算一下")
	if !strings.Contains(out, "❌ 计算错误:") {
		t.Errorf("failing call not reported inline:\n%s", out)
	}
	if !strings.Contains(out, "📊 BMI: 24.22") {
		t.Errorf("surviving call missing:\n%s", out)
	}
}

func TestInvokeNoDataFallbacks(t *testing.T) {
	var calls int

	inv := NewInvoker(healthRegistry(t), planOracle(t, &calls, "[]", nil), nil)
	if out := inv.Invoke(context.Background(), "帮我算算"); out != NoDataMessage {
		t.Errorf("empty plan = %q, want NoDataMessage", out)
	}

	inv = NewInvoker(healthRegistry(t), planOracle(t, &calls, "", errors.New("oracle down")), nil)
	if out := inv.Invoke(context.Background(), "帮我算算"); out != NoDataMessage {
		t.Errorf("oracle error = %q, want NoDataMessage", out)
	}

	inv = NewInvoker(healthRegistry(t), planOracle(t, &calls, "好的我来算", nil), nil)
	if out := inv.Invoke(context.Background(), "帮我算算"); out != NoDataMessage {
		t.Errorf("malformed plan = %q, want NoDataMessage", out)
	}

	inv = NewInvoker(healthRegistry(t), nil, nil)
	if out := inv.Invoke(context.Background(), "帮我算算"); out != NoDataMessage {
		t.Errorf("nil oracle = %q, want NoDataMessage", out)
	}
}
