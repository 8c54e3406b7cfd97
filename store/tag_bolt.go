package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/rushteam/curakit/core"
)

var tagBucket = []byte("tags")

// BoltTagStore 是 bbolt 实现的 TagStore，单文件、单写者，适合嵌入式部署。
type BoltTagStore struct {
	db *bolt.DB
}

func NewBoltTagStore(path string) (*BoltTagStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tagBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create tag bucket")
	}
	return &BoltTagStore{db: db}, nil
}

func (b *BoltTagStore) Name() string { return "bolt" }

func boltKey(scope, name string) []byte {
	return []byte(tagKey("", scope, name))
}

func (b *BoltTagStore) TagExists(ctx context.Context, scope, name string) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(tagBucket).Get(boltKey(scope, name)) != nil
		return nil
	})
	return exists, errors.Wrap(err, "bolt view")
}

func (b *BoltTagStore) CreateTag(ctx context.Context, tag *core.Tag) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	data, err := encodeTag(tag)
	if err != nil {
		return errors.Wrap(err, "encode tag")
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(tagBucket)
		key := boltKey(tag.Scope, tag.Name)
		if bucket.Get(key) != nil {
			return core.ErrTagExists
		}
		return bucket.Put(key, data)
	})
	if err == nil || errors.Is(err, core.ErrTagExists) {
		return err
	}
	return errors.Wrapf(err, "bolt create tag %s/%s", tag.Scope, tag.Name)
}

func (b *BoltTagStore) GetTag(ctx context.Context, scope, name string) (*core.Tag, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		// bolt 返回的切片只在事务内有效
		if v := tx.Bucket(tagBucket).Get(boltKey(scope, name)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "bolt view")
	}
	if data == nil {
		return nil, core.ErrTagNotFound
	}
	tag, err := decodeTag(data)
	return tag, errors.Wrap(err, "decode tag")
}

func (b *BoltTagStore) Close() error {
	return b.db.Close()
}

var _ core.TagStore = (*BoltTagStore)(nil)
