package core

import "context"

// EmbeddingProvider 提供按样本对齐的 embedding。
//
// 约束：
//   - 返回行与 sampleIDs 一一对应，所有行维度相同
//   - space 为空表示默认空间；空间不存在时返回 DATA 错误
//
// 实现：
//   - provider.StoreEmbeddings（基于 core.KeyValueStore）
//   - provider.MemoryEmbeddings（内存）
type EmbeddingProvider interface {
	Embeddings(ctx context.Context, space string, sampleIDs []string) ([][]float64, error)
}

// MetadataProvider 提供按样本对齐的 metadata 原始值。
// 值是否为数值由 Resolver 判断；key 不存在时返回 DATA 错误。
//
// 实现：
//   - provider.StoreMetadata（基于 core.KeyValueStore）
//   - provider.FeastMetadata（Feast 在线特征）
type MetadataProvider interface {
	Metadata(ctx context.Context, key string, sampleIDs []string) ([]any, error)
}

// AnnotationProvider 提供 label set 定义与每个样本的 label 计数。
// 样本缺失的 label 视为 0。
type AnnotationProvider interface {
	// Labels 返回 label set 的有序 label 列表；不存在时返回 DATA 错误
	Labels(ctx context.Context, labelSet string) ([]string, error)

	// LabelCounts 返回与 sampleIDs 对齐的 label -> count
	LabelCounts(ctx context.Context, labelSet string, sampleIDs []string) ([]map[string]float64, error)
}

// TagChecker 只读的 tag 存在性检查，Resolver 用它做廉价的前置校验。
type TagChecker interface {
	TagExists(ctx context.Context, scope, name string) (bool, error)
}

// TagStore 是 tag 的持久化接口。
//
// 设计原则：
//   - CreateTag 必须是原子的：要么 tag 与全部成员同时可见，要么都不可见
//   - 同一 scope 下同名 tag 已存在时返回 ErrTagExists
//   - 从不修改已有 tag
//
// 实现：
//   - store.MemoryTagStore
//   - store.RedisTagStore（WATCH + MULTI/EXEC）
//   - store.BadgerTagStore（badger 事务）
//   - store.BoltTagStore（bbolt 事务）
type TagStore interface {
	TagChecker

	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// CreateTag 原子地创建 tag 与成员
	CreateTag(ctx context.Context, tag *Tag) error

	// GetTag 读取 tag；不存在时返回 ErrTagNotFound
	GetTag(ctx context.Context, scope, name string) (*Tag, error)

	Close() error
}
