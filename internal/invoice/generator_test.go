package invoice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/invoicegen/internal/sequence"
)

var fixedNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, seq sequence.Sequence) *Generator {
	t.Helper()
	g, err := NewGenerator(t.TempDir(), seq, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return g
}

// stubSequence fails or misbehaves on Next.
type stubSequence struct {
	peek    int64
	next    int64
	nextErr error
	nexts   int
}

func (s *stubSequence) Peek(context.Context) (int64, error) { return s.peek, nil }

func (s *stubSequence) Next(context.Context) (int64, error) {
	s.nexts++
	return s.next, s.nextErr
}

func (s *stubSequence) Close() error { return nil }

// gatedSequence holds each Peek until the test releases it.
type gatedSequence struct {
	sequence.Sequence
	peeked  chan struct{}
	release chan struct{}
}

func (s *gatedSequence) Peek(ctx context.Context) (int64, error) {
	n, err := s.Sequence.Peek(ctx)
	s.peeked <- struct{}{}
	<-s.release
	return n, err
}

func newSharedRedisSequence(t *testing.T, mr *miniredis.Miniredis, start int64) sequence.Sequence {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	seq, err := sequence.NewRedis(context.Background(), client, "", start)
	require.NoError(t, err)
	return seq
}

func TestNewGenerator_Errors(t *testing.T) {
	_, err := NewGenerator("", sequence.NewMemory(1))
	assert.Error(t, err)

	_, err = NewGenerator(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestGenerator_Generate(t *testing.T) {
	seq := sequence.NewMemory(312)
	g := newTestGenerator(t, seq)

	result, err := g.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "Invoice_312.pdf", result.Filename)
	assert.Equal(t, filepath.Join(g.Directory(), "Invoice_312.pdf"), result.Path)
	assert.Equal(t, int64(312), result.InvoiceNumber)
	assert.InDelta(t, 1593035.0, result.Total, 1e-6)
	assert.Equal(t, "Rs1,593,035.00", result.TotalText)
	assert.Equal(t, "Fifteen Lakh, Ninety Three Thousand, Thirty Five Rupees Only", result.AmountInWords)

	info, err := os.Stat(result.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), result.Size)

	next, err := seq.Peek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(313), next)

	second, err := g.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "Invoice_313.pdf", second.Filename)
}

func TestGenerator_GeneratedFileReadsBack(t *testing.T) {
	g := newTestGenerator(t, sequence.NewMemory(312))

	result, err := g.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	inspection, err := NewInspector(10 * 1024 * 1024).Inspect(result.Path)
	require.NoError(t, err)

	assert.True(t, inspection.Valid, inspection.Message)
	assert.Equal(t, 1, inspection.Pages)
	assert.Equal(t, "Invoice 312", inspection.Title)
	assert.Equal(t, "312", inspection.InvoiceNumber)
	assert.Equal(t, result.AmountInWords, inspection.AmountInWords)
	assert.Equal(t, "JW-1237", inspection.Properties[PropVehicleNumber])
	assert.Equal(t, "Rs1,593,035.00", inspection.Properties[PropTotal])

	for _, want := range []string{
		"Invoice",
		"Submitted on: 15/06/2025",
		"A.T COMMODITIES",
		"Coal (JW-1237)",
		"14-06-2025",
		"40.330",
		"Rs39,500.00",
		"Rs1,593,035.00",
		result.AmountInWords,
	} {
		assert.Contains(t, inspection.Content, want)
	}
}

func TestGenerator_InvalidRequestConsumesNoNumber(t *testing.T) {
	seq := sequence.NewMemory(7)
	g := newTestGenerator(t, seq)

	req := validRequest()
	req.VehicleNumber = ""

	_, err := g.Generate(context.Background(), req)
	assert.ErrorIs(t, err, ErrMissingField)

	n, err := seq.Peek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	entries, err := os.ReadDir(g.Directory())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerator_CommitFailureRemovesFile(t *testing.T) {
	tests := []struct {
		name    string
		seq     *stubSequence
		wantErr error
	}{
		{
			name:    "next fails",
			seq:     &stubSequence{peek: 10, nextErr: errors.New("ledger unavailable")},
			wantErr: nil,
		},
		{
			name:    "sequence moved on",
			seq:     &stubSequence{peek: 10, next: 11},
			wantErr: ErrSequenceConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, tt.seq)

			_, err := g.Generate(context.Background(), validRequest())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, tt.seq.nexts)

			entries, err := os.ReadDir(g.Directory())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestGenerator_ConflictKeepsOtherWritersInvoice(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewGenerator(dir, newSharedRedisSequence(t, mr, 312), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	gated := &gatedSequence{
		Sequence: newSharedRedisSequence(t, mr, 312),
		peeked:   make(chan struct{}),
		release:  make(chan struct{}),
	}
	second, err := NewGenerator(dir, gated, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	secondErr := make(chan error, 1)
	go func() {
		_, err := second.Generate(ctx, validRequest())
		secondErr <- err
	}()
	<-gated.peeked

	result, err := first.Generate(ctx, validRequest())
	require.NoError(t, err)
	require.Equal(t, int64(312), result.InvoiceNumber)
	committed, err := os.ReadFile(result.Path)
	require.NoError(t, err)

	close(gated.release)
	err = <-secondErr
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSequenceConflict)

	kept, err := os.ReadFile(filepath.Join(dir, "Invoice_312.pdf"))
	require.NoError(t, err)
	assert.Equal(t, committed, kept)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Invoice_312.pdf", entries[0].Name())
}

func TestGenerator_CommittedNameTakenIsConflict(t *testing.T) {
	g := newTestGenerator(t, sequence.NewMemory(40))
	existing := []byte("already issued")
	require.NoError(t, os.WriteFile(filepath.Join(g.Directory(), "Invoice_40.pdf"), existing, 0o600))

	_, err := g.Generate(context.Background(), validRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSequenceConflict)

	kept, err := os.ReadFile(filepath.Join(g.Directory(), "Invoice_40.pdf"))
	require.NoError(t, err)
	assert.Equal(t, existing, kept)

	entries, err := os.ReadDir(g.Directory())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerator_ConcurrentGenerationsGetDistinctNumbers(t *testing.T) {
	g := newTestGenerator(t, sequence.NewMemory(1))

	const n = 6
	var wg sync.WaitGroup
	results := make([]*Result, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Generate(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i].InvoiceNumber], "duplicate number %d", results[i].InvoiceNumber)
		seen[results[i].InvoiceNumber] = true
	}
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing number %d", i)
		assert.FileExists(t, filepath.Join(g.Directory(), fmt.Sprintf("Invoice_%d.pdf", i)))
	}
}

func TestGenerator_CustomParties(t *testing.T) {
	parties := Parties{BillTo: "Acme Traders", PayableTo: "Northern Mines", Item: "Limestone"}
	g, err := NewGenerator(t.TempDir(), sequence.NewMemory(1), WithParties(parties))
	require.NoError(t, err)

	result, err := g.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	inspection, err := NewInspector(10 * 1024 * 1024).Inspect(result.Path)
	require.NoError(t, err)
	assert.Contains(t, inspection.Content, "Acme Traders")
	assert.Contains(t, inspection.Content, "Limestone (JW-1237)")
}
