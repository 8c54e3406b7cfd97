// Package config 从 YAML/JSON 请求文件构建 core.SelectionConfig。
//
// 文件格式：
//
//	selection:
//	  scope: dataset-42
//	  tag: diverse-500
//	  k: 500
//	  pool: [s1, s2, s3]
//	  strategies:
//	    - type: diversity
//	      config: {embedding_space: clip, strength: 2}
//	    - type: weighting
//	      config: {source: uncertainty, expr: "1.0 / (1.0 + value)"}
//	    - type: class_balance
//	      config: {label_set: species, target: [0.5, 0.5]}
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/curakit/core"
)

// Request 是选择请求文件的结构（支持 YAML/JSON）。
type Request struct {
	Selection struct {
		Scope      string           `yaml:"scope" json:"scope"`
		Tag        string           `yaml:"tag" json:"tag"`
		K          int              `yaml:"k" json:"k"`
		Pool       []string         `yaml:"pool" json:"pool"`
		Strategies []StrategyConfig `yaml:"strategies" json:"strategies"`
	} `yaml:"selection" json:"selection"`
}

// StrategyConfig 是单个策略的配置。
type StrategyConfig struct {
	Type   string         `yaml:"type" json:"type"`     // diversity / weighting / class_balance
	Config map[string]any `yaml:"config" json:"config"` // 策略特定配置
}

// LoadFromYAML 从 YAML 文件加载请求。
func LoadFromYAML(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

// LoadFromJSON 从 JSON 文件加载请求。
func LoadFromJSON(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseJSON(data)
}

func ParseYAML(data []byte) (*Request, error) {
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, core.NewConfigurationError(core.ModuleConfig, "parse yaml").WithCause(err)
	}
	return &req, nil
}

func ParseJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, core.NewConfigurationError(core.ModuleConfig, "parse json").WithCause(err)
	}
	return &req, nil
}

// ToSelectionConfig 解析全部策略描述，得到 core.SelectionConfig。
// 这里只做描述层面的解析，k、tag、strength 等约束由 Resolver.Validate 检查。
func (r *Request) ToSelectionConfig() (*core.SelectionConfig, error) {
	strategies := make([]core.Strategy, 0, len(r.Selection.Strategies))
	for i, sc := range r.Selection.Strategies {
		s, err := ParseStrategy(sc.Type, sc.Config)
		if err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
		strategies = append(strategies, s)
	}
	return &core.SelectionConfig{
		Scope:         r.Selection.Scope,
		CandidatePool: append([]string(nil), r.Selection.Pool...),
		Strategies:    strategies,
		K:             r.Selection.K,
		ResultTagName: r.Selection.Tag,
	}, nil
}
