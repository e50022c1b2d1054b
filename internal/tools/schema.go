package tools

import (
	"encoding/json"
	"fmt"
	"math"
)

// Property 参数定义
type Property struct {
	Type        string // string, integer, number, boolean
	Description string
}

// Schema 工具参数的 JSON Schema（仅 object 顶层）
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// JSON 转为模型可读的 JSON Schema
func (s Schema) JSON() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		def := map[string]any{"type": p.Type}
		if p.Description != "" {
			def["description"] = p.Description
		}
		props[name] = def
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Validator 执行前校验参数
type Validator interface {
	Validate(args map[string]any, schema Schema) error
}

// DefaultValidator 校验必填字段与基础类型；null 等同于未提供
type DefaultValidator struct{}

// Validate 实现 Validator
func (DefaultValidator) Validate(args map[string]any, schema Schema) error {
	for _, field := range schema.Required {
		if v, ok := args[field]; !ok || v == nil {
			return fmt.Errorf("%w: missing required field %s", ErrInvalidArguments, field)
		}
	}

	for key, value := range args {
		prop, ok := schema.Properties[key]
		if !ok || value == nil {
			continue
		}
		if err := checkType(value, prop.Type); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidArguments, key, err)
		}
	}
	return nil
}

func checkType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "":
		return nil
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64, int, int32, int64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case float64:
		return math.Trunc(v) == v
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
