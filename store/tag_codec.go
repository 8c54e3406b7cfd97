package store

import (
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rushteam/curakit/core"
)

// tagRecord 是 tag 的持久化格式（msgpack）。成员按选取顺序保存。
type tagRecord struct {
	ID        string   `msgpack:"id"`
	Scope     string   `msgpack:"scope"`
	Name      string   `msgpack:"name"`
	SampleIDs []string `msgpack:"sample_ids"`
	CreatedAt int64    `msgpack:"created_at"` // unix nano
}

func encodeTag(tag *core.Tag) ([]byte, error) {
	return msgpack.Marshal(&tagRecord{
		ID:        tag.ID,
		Scope:     tag.Scope,
		Name:      tag.Name,
		SampleIDs: tag.SampleIDs,
		CreatedAt: tag.CreatedAt.UnixNano(),
	})
}

func decodeTag(data []byte) (*core.Tag, error) {
	var rec tagRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &core.Tag{
		ID:        rec.ID,
		Scope:     rec.Scope,
		Name:      rec.Name,
		SampleIDs: rec.SampleIDs,
		CreatedAt: time.Unix(0, rec.CreatedAt),
	}, nil
}

func validateTag(tag *core.Tag) error {
	if tag == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: tag is nil")
	}
	if strings.TrimSpace(tag.Name) == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: tag name is empty")
	}
	return nil
}

// tagKey 使用 \x00 分隔 scope 与 name，避免 "a:b"+"c" 与 "a"+"b:c" 冲突。
func tagKey(prefix, scope, name string) string {
	return prefix + scope + "\x00" + name
}

func cloneTag(tag *core.Tag) *core.Tag {
	out := *tag
	out.SampleIDs = append([]string(nil), tag.SampleIDs...)
	return &out
}
