// Package provider 提供选择链路的只读数据源实现：embedding、metadata、标注。
//
// 基于 core.KeyValueStore 的实现使用如下 key 布局（值均为 msgpack 编码）：
//
//	emb:spaces            hash  space -> 维度(int)
//	emb:{space}:{id}      []float64
//	meta:keys             hash  key -> 1
//	meta:{key}:{id}       任意标量
//	ann:labelsets         hash  label set -> []string（有序 label）
//	ann:{set}:{id}        map[string]float64（label -> count）
package provider

import (
	"github.com/vmihailenco/msgpack/v5"
)

const (
	embeddingSpacesKey = "emb:spaces"
	metadataKeysKey    = "meta:keys"
	labelSetsKey       = "ann:labelsets"
)

func embeddingKey(space, id string) string { return "emb:" + space + ":" + id }
func metadataKey(key, id string) string    { return "meta:" + key + ":" + id }
func annotationKey(set, id string) string  { return "ann:" + set + ":" + id }

func keysFor(ids []string, fn func(string) string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fn(id)
	}
	return keys
}

func encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
