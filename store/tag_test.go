package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/curakit/core"
)

func newTag(scope, name string, ids ...string) *core.Tag {
	return &core.Tag{
		ID:        uuid.NewString(),
		Scope:     scope,
		Name:      name,
		SampleIDs: ids,
		CreatedAt: time.Unix(1700000000, 0),
	}
}

// runTagStoreContract 是所有 TagStore 实现共享的行为约束。
func runTagStoreContract(t *testing.T, s core.TagStore) {
	ctx := context.Background()

	t.Run("create and read back in pick order", func(t *testing.T) {
		tag := newTag("ds1", "hard-cases", "s3", "s1", "s2")
		require.NoError(t, s.CreateTag(ctx, tag))

		exists, err := s.TagExists(ctx, "ds1", "hard-cases")
		require.NoError(t, err)
		assert.True(t, exists)

		got, err := s.GetTag(ctx, "ds1", "hard-cases")
		require.NoError(t, err)
		assert.Equal(t, tag.ID, got.ID)
		assert.Equal(t, []string{"s3", "s1", "s2"}, got.SampleIDs)
		assert.True(t, tag.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate name in same scope is rejected", func(t *testing.T) {
		require.NoError(t, s.CreateTag(ctx, newTag("ds2", "dup", "a")))
		err := s.CreateTag(ctx, newTag("ds2", "dup", "b"))
		assert.ErrorIs(t, err, core.ErrTagExists)

		got, err := s.GetTag(ctx, "ds2", "dup")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got.SampleIDs, "existing tag must not be modified")
	})

	t.Run("same name in another scope is independent", func(t *testing.T) {
		require.NoError(t, s.CreateTag(ctx, newTag("ds3", "shared", "a")))
		require.NoError(t, s.CreateTag(ctx, newTag("ds4", "shared", "b")))
	})

	t.Run("missing tag", func(t *testing.T) {
		exists, err := s.TagExists(ctx, "nope", "nope")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = s.GetTag(ctx, "nope", "nope")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("invalid tag", func(t *testing.T) {
		assert.Error(t, s.CreateTag(ctx, nil))
		assert.Error(t, s.CreateTag(ctx, newTag("ds5", " ")))
	})

	t.Run("concurrent creation has exactly one winner", func(t *testing.T) {
		const workers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.CreateTag(ctx, newTag("race", "one", fmt.Sprintf("s%d", w)))
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, core.ErrTagExists)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winners)
	})
}

func TestMemoryTagStore(t *testing.T) {
	s := NewMemoryTagStore()
	defer s.Close()
	runTagStoreContract(t, s)
}

func TestBadgerTagStore(t *testing.T) {
	s, err := NewBadgerTagStore(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer s.Close()
	runTagStoreContract(t, s)
}

func TestBadgerTagStore_RequiresDir(t *testing.T) {
	_, err := NewBadgerTagStore(BadgerOptions{})
	assert.Error(t, err)
}

func TestBoltTagStore(t *testing.T) {
	s, err := NewBoltTagStore(filepath.Join(t.TempDir(), "tags.db"))
	require.NoError(t, err)
	defer s.Close()
	runTagStoreContract(t, s)
}

func TestRedisTagStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := "curakit-test-" + uuid.NewString() + ":"
	s := NewRedisTagStore(client, prefix)
	defer s.Close()
	runTagStoreContract(t, s)

	members, err := client.SMembers(context.Background(), s.key("ds1", "hard-cases")+":members").Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, members)
}
