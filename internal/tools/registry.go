package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shopassist/pkg/aiinterface"
)

var (
	// ErrUnknownTool 工具名不在枚举内或未注册
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments 参数不符合工具 Schema
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Tool 注册到助手的只读工具
type Tool struct {
	Name        Name
	Description string
	Schema      Schema

	invoke func(ctx context.Context, args map[string]any) (any, error)
}

// New 把强类型处理函数包装为 Tool；模型给出的 JSON 参数解码为 T
func New[T any](name Name, description string, schema Schema, fn func(ctx context.Context, args T) (any, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		invoke: func(ctx context.Context, raw map[string]any) (any, error) {
			var args T
			if len(raw) > 0 {
				data, err := json.Marshal(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
				}
				if err := json.Unmarshal(data, &args); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
				}
			}
			return fn(ctx, args)
		},
	}
}

// Call 直接调用工具（不经过执行器的校验、超时与审计）
func (t Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	if t.invoke == nil {
		return nil, fmt.Errorf("%w: %s has no handler", ErrUnknownTool, t.Name)
	}
	return t.invoke(ctx, args)
}

// Definition 模型侧的函数定义
func (t Tool) Definition() aiinterface.Tool {
	return aiinterface.Tool{
		Type: "function",
		Function: aiinterface.FunctionDef{
			Name:        string(t.Name),
			Description: t.Description,
			Parameters:  t.Schema.JSON(),
		},
	}
}

// Registry 工具注册表；构造后只读，可在会话间共享
type Registry struct {
	tools map[Name]Tool
}

// NewRegistry 创建注册表，拒绝枚举外名称与重复注册
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[Name]Tool, len(tools))}
	for _, t := range tools {
		if !t.Name.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTool, t.Name)
		}
		if t.invoke == nil {
			return nil, fmt.Errorf("工具 %s 缺少处理函数", t.Name)
		}
		if _, exists := r.tools[t.Name]; exists {
			return nil, fmt.Errorf("工具 %s 已注册", t.Name)
		}
		r.tools[t.Name] = t
	}
	return r, nil
}

// Lookup 按模型给出的名称查找工具
func (r *Registry) Lookup(name string) (Tool, error) {
	n, err := ParseName(name)
	if err != nil {
		return Tool{}, err
	}
	t, ok := r.tools[n]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s is not enabled", ErrUnknownTool, n)
	}
	return t, nil
}

// Names 已注册的工具名（枚举顺序）
func (r *Registry) Names() []Name {
	out := make([]Name, 0, len(r.tools))
	for _, n := range allNames {
		if _, ok := r.tools[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Definitions 转换为 Function Calling 格式（枚举顺序）
func (r *Registry) Definitions() []aiinterface.Tool {
	names := r.Names()
	defs := make([]aiinterface.Tool, 0, len(names))
	for _, n := range names {
		defs = append(defs, r.tools[n].Definition())
	}
	return defs
}

// Count 已注册工具数
func (r *Registry) Count() int {
	return len(r.tools)
}
