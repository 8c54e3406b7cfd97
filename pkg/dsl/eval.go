package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/curakit/pkg/conv"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存已编译的表达式：expr -> cel.Program
	programs sync.Map
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("value", cel.DoubleType),
		cel.Variable("id", cel.StringType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Transform 是对单个 metadata 数值的 CEL 变换，使用 CEL (Common Expression Language) 实现。
//
// 变量：
//   - value：样本的 metadata 数值（double）
//   - id：样本 ID（string）
//
// 示例：
//   - `1.0 / (1.0 + value)` → 值越小权重越大
//   - `value * value` → 放大差异
//   - `id.startsWith("hard_") ? value * 2.0 : value` → 按样本前缀调权
type Transform struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；相同表达式只编译一次。
func Compile(expr string) (*Transform, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression is empty")
	}
	if cached, ok := programs.Load(expr); ok {
		return &Transform{expr: expr, prg: cached.(cel.Program)}, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	programs.Store(expr, prg)
	return &Transform{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式
func (t *Transform) Expr() string { return t.expr }

// Eval 对一个样本求值，结果必须为数值。
func (t *Transform) Eval(id string, value float64) (float64, error) {
	out, _, err := t.prg.Eval(map[string]any{
		"value": value,
		"id":    id,
	})
	if err != nil {
		return 0, fmt.Errorf("eval error: %w", err)
	}
	f, ok := conv.ToNumber(out.Value())
	if !ok {
		return 0, fmt.Errorf("expression must return a number, got %T", out.Value())
	}
	return f, nil
}
