package invoice

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/invoicegen/internal/sequence"
)

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "fits", in: "Coal", limit: 10, want: "Coal"},
		{name: "ascii cut", in: "Invoice", limit: 3, want: "Inv"},
		{name: "cut inside rupee sign", in: "Rs ₹500", limit: 4, want: "Rs "},
		{name: "cut after rupee sign", in: "Rs ₹500", limit: 6, want: "Rs ₹"},
		{name: "cut inside first rune", in: "₹", limit: 2, want: ""},
		{name: "zero limit", in: "abc", limit: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateUTF8(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), tt.limit)
		})
	}
}

func TestInspector_TextIsCapped(t *testing.T) {
	g := newTestGenerator(t, sequence.NewMemory(312))
	result, err := g.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	inspector := NewInspector(10 * 1024 * 1024)
	inspector.maxTextSize = 40

	inspection, err := inspector.Inspect(result.Path)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(inspection.Content), 40)
	assert.True(t, utf8.ValidString(inspection.Content))
}
