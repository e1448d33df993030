package sequence

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, start int64) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	seq, err := NewRedis(context.Background(), client, "", start)
	require.NoError(t, err)
	return seq, mr
}

func TestSequences_PeekThenNext(t *testing.T) {
	ctx := context.Background()
	redisSeq, _ := newTestRedis(t, 312)
	ledger, err := OpenLedger(t.TempDir(), 312)
	require.NoError(t, err)

	sequences := map[string]Sequence{
		"memory": NewMemory(312),
		"ledger": ledger,
		"redis":  redisSeq,
	}

	for name, seq := range sequences {
		t.Run(name, func(t *testing.T) {
			defer seq.Close()

			peeked, err := seq.Peek(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(312), peeked)

			// Peek does not consume.
			again, err := seq.Peek(ctx)
			require.NoError(t, err)
			assert.Equal(t, peeked, again)

			n, err := seq.Next(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(312), n)

			n, err = seq.Next(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(313), n)

			peeked, err = seq.Peek(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(314), peeked)
		})
	}
}

func TestSequences_ConcurrentNextIsUnique(t *testing.T) {
	ctx := context.Background()
	redisSeq, _ := newTestRedis(t, 1)
	ledger, err := OpenLedger(t.TempDir(), 1)
	require.NoError(t, err)

	sequences := map[string]Sequence{
		"memory": NewMemory(1),
		"ledger": ledger,
		"redis":  redisSeq,
	}

	const workers, perWorker = 8, 25

	for name, seq := range sequences {
		t.Run(name, func(t *testing.T) {
			var (
				mu  sync.Mutex
				got []int64
				wg  sync.WaitGroup
			)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						n, err := seq.Next(ctx)
						if !assert.NoError(t, err) {
							return
						}
						mu.Lock()
						got = append(got, n)
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			require.Len(t, got, workers*perWorker)
			sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
			for i, n := range got {
				assert.Equal(t, int64(i+1), n)
			}
		})
	}
}

func TestLedger_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenLedger(dir, 312)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := first.Next(ctx)
		require.NoError(t, err)
	}

	// The seed is ignored once a ledger exists.
	second, err := OpenLedger(dir, 1)
	require.NoError(t, err)
	n, err := second.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(315), n)
	assert.Equal(t, filepath.Join(dir, LedgerFileName), second.Path())
}

func TestLedger_SharedDirectoryNeverRepeats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenLedger(dir, 312)
	require.NoError(t, err)
	second, err := OpenLedger(dir, 312)
	require.NoError(t, err)

	a, err := first.Next(ctx)
	require.NoError(t, err)
	peeked, err := second.Peek(ctx)
	require.NoError(t, err)
	b, err := second.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(312), a)
	assert.Equal(t, int64(313), peeked)
	assert.Equal(t, int64(313), b)

	const perLedger = 20
	var (
		mu  sync.Mutex
		got []int64
		wg  sync.WaitGroup
	)
	for _, l := range []*Ledger{first, second} {
		wg.Add(1)
		go func(l *Ledger) {
			defer wg.Done()
			for i := 0; i < perLedger; i++ {
				n, err := l.Next(ctx)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
			}
		}(l)
	}
	wg.Wait()

	require.Len(t, got, 2*perLedger)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, n := range got {
		assert.Equal(t, int64(314+i), n)
	}
	assert.NoFileExists(t, first.Path()+".lock")
}

func TestLedger_StaleLockIsReclaimed(t *testing.T) {
	dir := t.TempDir()
	ledger, err := OpenLedger(dir, 7)
	require.NoError(t, err)

	lockPath := ledger.Path() + ".lock"
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))
	old := time.Now().Add(-2 * ledgerLockStale)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	n, err := ledger.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestLedger_HeldLockRespectsContext(t *testing.T) {
	ledger, err := OpenLedger(t.TempDir(), 7)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ledger.Path()+".lock", nil, 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = ledger.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, os.Remove(ledger.Path()+".lock"))
	n, err := ledger.Peek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestOpenLedger_Errors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		_, err := OpenLedger("", 1)
		assert.Error(t, err)
	})

	t.Run("invalid start", func(t *testing.T) {
		_, err := OpenLedger(t.TempDir(), 0)
		assert.ErrorIs(t, err, ErrInvalidStart)
	})

	t.Run("corrupt file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, LedgerFileName), []byte("{not json"), 0o600))
		_, err := OpenLedger(dir, 1)
		assert.ErrorContains(t, err, "corrupt ledger")
	})

	t.Run("non positive next", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, LedgerFileName), []byte(`{"next":0}`), 0o600))
		_, err := OpenLedger(dir, 1)
		assert.ErrorContains(t, err, "corrupt ledger")
	})
}

func TestLedger_NextHonorsContext(t *testing.T) {
	ledger, err := OpenLedger(t.TempDir(), 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ledger.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	n, err := ledger.Peek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestRedis_SeedDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	seq, mr := newTestRedis(t, 100)

	_, err := seq.Next(ctx)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	other, err := NewRedis(ctx, client, DefaultRedisKey, 1)
	require.NoError(t, err)

	n, err := other.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(101), n)
	assert.NoError(t, other.Close())
}

func TestRedis_PeekMissingKey(t *testing.T) {
	ctx := context.Background()
	seq, mr := newTestRedis(t, 1)

	mr.Del(DefaultRedisKey)

	_, err := seq.Peek(ctx)
	assert.ErrorContains(t, err, "disappeared")
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "default is memory", opts: Options{Start: 1}},
		{name: "memory", opts: Options{Kind: KindMemory, Start: 312}},
		{name: "file", opts: Options{Kind: KindFile, Start: 312, LedgerDir: t.TempDir()}},
		{name: "redis", opts: Options{Kind: KindRedis, Start: 312, RedisAddr: mr.Addr()}},
		{name: "redis without address", opts: Options{Kind: KindRedis, Start: 312}, wantErr: true},
		{name: "unknown kind", opts: Options{Kind: "etcd", Start: 1}, wantErr: true},
		{name: "zero start", opts: Options{Kind: KindMemory}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := New(ctx, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer seq.Close()

			n, err := seq.Peek(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.opts.Start, n)
		})
	}
}
