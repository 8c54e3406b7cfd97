package core

import "fmt"

// StrategyKind 标记策略变体。策略集合是封闭的：只有下面三种。
type StrategyKind string

const (
	KindDiversity    StrategyKind = "diversity"     // 表示空间多样性
	KindWeighting    StrategyKind = "weighting"     // 外部重要性权重
	KindClassBalance StrategyKind = "class_balance" // 目标类别分布
)

// DefaultStrength 是未显式指定 strength 时的默认值。
const DefaultStrength = 1.0

// Kinds 返回所有支持的策略类型（稳定顺序，用于错误提示）。
func Kinds() []StrategyKind {
	return []StrategyKind{KindDiversity, KindWeighting, KindClassBalance}
}

// DiversityStrategy 偏好在 embedding 空间中彼此远离的样本。
type DiversityStrategy struct {
	// EmbeddingSpace 为空时使用 provider 的默认空间
	EmbeddingSpace string
	Strength       float64
}

// WeightingStrategy 按 metadata 中的数值加权，多个加权策略按乘法组合。
type WeightingStrategy struct {
	// Source 是 metadata key
	Source   string
	Strength float64
	// Expr 是可选的 CEL 表达式，变量 value(double)、id(string)，
	// 例如 "1.0 / (1.0 + value)"，结果必须为数值
	Expr string
}

// ClassBalanceStrategy 让已选样本的 label 分布逼近目标分布。
type ClassBalanceStrategy struct {
	LabelSet string
	// Target 与 label set 的有序 label 对齐；为空表示均匀分布
	Target   []float64
	Strength float64
}

// Strategy 是封闭的 tagged union：Kind 决定哪个字段有效。
type Strategy struct {
	Kind         StrategyKind
	Diversity    *DiversityStrategy
	Weighting    *WeightingStrategy
	ClassBalance *ClassBalanceStrategy
}

func Diversity(space string, strength float64) Strategy {
	return Strategy{Kind: KindDiversity, Diversity: &DiversityStrategy{EmbeddingSpace: space, Strength: strength}}
}

func Weighting(source string, strength float64) Strategy {
	return Strategy{Kind: KindWeighting, Weighting: &WeightingStrategy{Source: source, Strength: strength}}
}

func WeightingExpr(source, expr string, strength float64) Strategy {
	return Strategy{Kind: KindWeighting, Weighting: &WeightingStrategy{Source: source, Expr: expr, Strength: strength}}
}

func ClassBalance(labelSet string, target []float64, strength float64) Strategy {
	return Strategy{Kind: KindClassBalance, ClassBalance: &ClassBalanceStrategy{LabelSet: labelSet, Target: target, Strength: strength}}
}

// Strength 返回当前变体的 strength；变体缺失时返回 0。
func (s Strategy) Strength() float64 {
	switch s.Kind {
	case KindDiversity:
		if s.Diversity != nil {
			return s.Diversity.Strength
		}
	case KindWeighting:
		if s.Weighting != nil {
			return s.Weighting.Strength
		}
	case KindClassBalance:
		if s.ClassBalance != nil {
			return s.ClassBalance.Strength
		}
	}
	return 0
}

// Ref 返回策略引用的资源名（embedding space / metadata key / label set）。
func (s Strategy) Ref() string {
	switch s.Kind {
	case KindDiversity:
		if s.Diversity != nil {
			return s.Diversity.EmbeddingSpace
		}
	case KindWeighting:
		if s.Weighting != nil {
			return s.Weighting.Source
		}
	case KindClassBalance:
		if s.ClassBalance != nil {
			return s.ClassBalance.LabelSet
		}
	}
	return ""
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s(%s, strength=%g)", s.Kind, s.Ref(), s.Strength())
}
