package config

import (
	"github.com/rushteam/curakit/core"
	"github.com/rushteam/curakit/pkg/conv"
)

// StrategyParser 根据 map 描述构建策略。
type StrategyParser func(cfg map[string]any) (core.Strategy, error)

// parsers 是封闭的策略类型表，不支持运行时注册。
var parsers = map[core.StrategyKind]StrategyParser{
	core.KindDiversity:    parseDiversity,
	core.KindWeighting:    parseWeighting,
	core.KindClassBalance: parseClassBalance,
}

// SupportedKinds 返回支持的策略类型，用于错误提示与校验。
func SupportedKinds() []string {
	kinds := core.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// ParseStrategy 按类型解析一个策略描述；未知类型返回包含已支持列表的 CONFIGURATION 错误。
func ParseStrategy(typeName string, cfg map[string]any) (core.Strategy, error) {
	parse, ok := parsers[core.StrategyKind(typeName)]
	if !ok {
		return core.Strategy{}, core.NewConfigurationError(core.ModuleConfig,
			"unsupported strategy type %q (supported: %v)", typeName, SupportedKinds())
	}
	return parse(cfg)
}

// strength 读取 strength，缺省时为 core.DefaultStrength；0 与负值原样返回交给 Resolver 拒绝。
func strength(cfg map[string]any) (float64, error) {
	raw, ok := cfg["strength"]
	if !ok || raw == nil {
		return core.DefaultStrength, nil
	}
	f, ok := conv.ToNumber(raw)
	if !ok {
		return 0, core.NewConfigurationError(core.ModuleConfig, "strength: must be a number, got %T", raw)
	}
	return f, nil
}

func parseDiversity(cfg map[string]any) (core.Strategy, error) {
	s, err := strength(cfg)
	if err != nil {
		return core.Strategy{}, err
	}
	return core.Diversity(conv.ConfigGet(cfg, "embedding_space", ""), s), nil
}

func parseWeighting(cfg map[string]any) (core.Strategy, error) {
	s, err := strength(cfg)
	if err != nil {
		return core.Strategy{}, err
	}
	source := conv.ConfigGet(cfg, "source", "")
	if source == "" {
		return core.Strategy{}, core.NewConfigurationError(core.ModuleConfig, "weighting: source metadata key is required")
	}
	return core.WeightingExpr(source, conv.ConfigGet(cfg, "expr", ""), s), nil
}

func parseClassBalance(cfg map[string]any) (core.Strategy, error) {
	s, err := strength(cfg)
	if err != nil {
		return core.Strategy{}, err
	}
	labelSet := conv.ConfigGet(cfg, "label_set", "")
	if labelSet == "" {
		return core.Strategy{}, core.NewConfigurationError(core.ModuleConfig, "class_balance: label_set is required")
	}

	var target []float64
	if raw, ok := cfg["target"]; ok && raw != nil {
		target, ok = conv.SliceAnyToFloat64(raw)
		if !ok {
			return core.Strategy{}, core.NewConfigurationError(core.ModuleConfig, "class_balance: target must be a list of numbers")
		}
	}
	return core.ClassBalance(labelSet, target, s), nil
}
