package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Set(ctx, "k", []byte("v"), 0))
	val, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, st.Delete(ctx, "k"))
	_, err = st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	now := time.Now()
	st.SetClock(func() time.Time { return now })

	require.NoError(t, st.Set(ctx, "k", []byte("v"), 600*time.Second))

	_, err := st.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(601 * time.Second)
	_, err = st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.Set(ctx, "k", []byte("secret"), 0))

	val, err := st.ConsumeOnce(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), val)

	// a second consume must not see the value
	_, err = st.ConsumeOnce(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	next, err := st.Update(ctx, "k", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte("a"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), next)

	next, err = st.Update(ctx, "k", func(current []byte) ([]byte, error) {
		return append(current, 'b'), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), next)
}

func TestMemoryStoreUpdateConcurrent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Update(ctx, "k", func(current []byte) ([]byte, error) {
				return append(current, 'x'), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	val, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, val, writers, "no concurrent update may be lost")
}
