package store

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/rushteam/curakit/core"
)

// BadgerOptions 配置 BadgerTagStore。
type BadgerOptions struct {
	// Dir 是数据目录，磁盘模式下必填
	Dir string

	// InMemory 为 true 时不落盘（测试用）
	InMemory bool

	// Logger 为 nil 时静默；logrus.FieldLogger 可直接传入
	Logger badger.Logger
}

// BadgerTagStore 是 BadgerDB 实现的 TagStore，适合单机部署。
// CreateTag 在一个读写事务内完成“检查不存在 + 写入”，并发冲突按“tag 已存在”处理。
type BadgerTagStore struct {
	db *badger.DB
}

func NewBadgerTagStore(opts BadgerOptions) (*BadgerTagStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(opts.Logger)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	return &BadgerTagStore{db: db}, nil
}

func (b *BadgerTagStore) Name() string { return "badger" }

func badgerKey(scope, name string) []byte {
	return []byte(tagKey("tag:", scope, name))
}

func (b *BadgerTagStore) TagExists(ctx context.Context, scope, name string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(scope, name))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "badger get tag")
	}
	return true, nil
}

func (b *BadgerTagStore) CreateTag(ctx context.Context, tag *core.Tag) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	data, err := encodeTag(tag)
	if err != nil {
		return errors.Wrap(err, "encode tag")
	}

	key := badgerKey(tag.Scope, tag.Name)
	err = b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return core.ErrTagExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrTagExists), errors.Is(err, badger.ErrConflict):
		return core.ErrTagExists
	default:
		return errors.Wrapf(err, "badger create tag %s/%s", tag.Scope, tag.Name)
	}
}

func (b *BadgerTagStore) GetTag(ctx context.Context, scope, name string) (*core.Tag, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(scope, name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrTagNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "badger get tag")
	}
	tag, err := decodeTag(data)
	return tag, errors.Wrap(err, "decode tag")
}

func (b *BadgerTagStore) Close() error {
	return b.db.Close()
}

var _ core.TagStore = (*BadgerTagStore)(nil)
