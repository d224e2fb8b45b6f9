package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	errorskg "github.com/sweetpotato0/health-agent/errors"
)

func TestRegistryRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Tool{
		Name: "echo",
		Parameters: []Parameter{
			{Name: "text", Type: "string", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (string, error) {
			return args.String("text", ""), nil
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := r.Register(&Tool{Name: "echo"}); !errors.Is(err, errorskg.ErrAlreadyExists) {
		t.Errorf("duplicate Register = %v, want ErrAlreadyExists", err)
	}

	out, err := r.Execute(context.Background(), "echo", Args{"text": "你好"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "你好" {
		t.Errorf("Execute = %q, want 你好", out)
	}

	_, err = r.Execute(context.Background(), "echo", Args{})
	if !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Errorf("missing required arg = %v, want ErrInvalidInput", err)
	}
	_, err = r.Execute(context.Background(), "missing", Args{})
	if !errors.Is(err, errorskg.ErrNotFound) {
		t.Errorf("unknown tool = %v, want ErrNotFound", err)
	}
}

func TestArgsCoercion(t *testing.T) {
	args := Args{
		"height": 175.0,
		"weight": "70.5",
		"age":    float64(30),
		"gender": "男",
	}

	if v, err := args.Float("height"); err != nil || v != 175.0 {
		t.Errorf("Float(height) = (%v, %v)", v, err)
	}
	if v, err := args.Float("weight"); err != nil || v != 70.5 {
		t.Errorf("Float from string = (%v, %v)", v, err)
	}
	if v, err := args.Int("age"); err != nil || v != 30 {
		t.Errorf("Int(age) = (%v, %v)", v, err)
	}
	if v := args.String("gender", "女"); v != "男" {
		t.Errorf("String(gender) = %q", v)
	}
	if v := args.String("missing", "moderate"); v != "moderate" {
		t.Errorf("String default = %q", v)
	}
	if _, err := args.Float("gender"); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Errorf("non-numeric Float = %v, want ErrInvalidInput", err)
	}
}

func TestHealthToolsCompute(t *testing.T) {
	r := NewRegistry()
	if err := RegisterHealthTools(r); err != nil {
		t.Fatalf("RegisterHealthTools: %v", err)
	}
	if len(r.List()) != 5 {
		t.Fatalf("registered %d tools, want 5", len(r.List()))
	}
	ctx := context.Background()

	out, err := r.Execute(ctx, "calculate_bmi", Args{"height_cm": 175.0, "weight_kg": 70.0})
	if err != nil {
		t.Fatalf("calculate_bmi: %v", err)
	}
	if !strings.Contains(out, "BMI: 22.86") || !strings.Contains(out, "状态: 正常") {
		t.Errorf("bmi output = %q", out)
	}

	out, err = r.Execute(ctx, "calculate_blood_pressure_risk", Args{"systolic": 135.0, "diastolic": 85.0})
	if err != nil {
		t.Fatalf("calculate_blood_pressure_risk: %v", err)
	}
	if !strings.Contains(out, "1级高血压") {
		t.Errorf("bp output = %q", out)
	}

	out, err = r.Execute(ctx, "calculate_target_heart_rate", Args{"age": 30.0})
	if err != nil {
		t.Fatalf("calculate_target_heart_rate: %v", err)
	}
	if !strings.Contains(out, "最大心率: 190") {
		t.Errorf("heart rate output = %q", out)
	}

	// Invalid values surface as the inline 计算错误 report, not an error.
	out, err = r.Execute(ctx, "calculate_bmi", Args{"height_cm": 0.0, "weight_kg": 70.0})
	if err != nil {
		t.Fatalf("calculate_bmi zero height: %v", err)
	}
	if !strings.Contains(out, "计算错误") {
		t.Errorf("zero height output = %q, want inline 计算错误", out)
	}
}

func TestSchemaShape(t *testing.T) {
	tools := HealthTools()
	schema := tools[0].Schema()
	if schema["name"] != "calculate_bmi" {
		t.Errorf("schema name = %v", schema["name"])
	}
	params, ok := schema["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("parameters missing: %v", schema)
	}
	required, ok := params["required"].([]string)
	if !ok || len(required) != 2 {
		t.Errorf("required = %v, want 2 entries", params["required"])
	}
}
