// Package curakit 是一个数据集样本挑选工具包（Curation Kit）。
//
// 设计要点：
// - Strategy-first: 挑选意图用封闭的策略集合描述（diversity / weighting / class_balance），多策略按 strength 加权组合
// - Greedy kernel: 纯函数内核，逐步选出边际得分最高的样本，结果确定、可复现
// - Tag as result: 一次运行要么原子写入一个新 tag，要么不留任何副作用
package curakit

import (
	"github.com/rushteam/curakit/core"
	"github.com/rushteam/curakit/selection"
)

// 轻量 facade：便于用户直接 import "curakit" 使用核心抽象。
type (
	Strategy        = core.Strategy
	StrategyKind    = core.StrategyKind
	SelectionConfig = core.SelectionConfig
	SelectionResult = core.SelectionResult
	Tag             = core.Tag
	Selector        = selection.Selector
)

const (
	KindDiversity    = core.KindDiversity
	KindWeighting    = core.KindWeighting
	KindClassBalance = core.KindClassBalance
)

var (
	Diversity     = core.Diversity
	Weighting     = core.Weighting
	WeightingExpr = core.WeightingExpr
	ClassBalance  = core.ClassBalance
)
