package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLimit(t *testing.T) *int64 {
	t.Helper()

	var got int64 = -1
	orig := setLimit
	setLimit = func(limit int64) int64 {
		if limit >= 0 {
			got = limit
		}
		return got
	}
	t.Cleanup(func() { setLimit = orig })
	return &got
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name      string
		limit     string
		ratio     string
		want      Limit
		wantSet   int64
		configure bool
	}{
		{
			name: "nothing set",
			want: Limit{Source: SourceNone},
		},
		{
			name:      "container limit with default ratio",
			limit:     "1000",
			want:      Limit{Source: SourceContainer, ContainerLimit: 1000, GoMemLimit: 800, Ratio: DefaultMemoryRatio},
			wantSet:   800,
			configure: true,
		},
		{
			name:      "custom ratio",
			limit:     "1000",
			ratio:     "0.5",
			want:      Limit{Source: SourceContainer, ContainerLimit: 1000, GoMemLimit: 500, Ratio: 0.5},
			wantSet:   500,
			configure: true,
		},
		{
			name:      "ratio out of range falls back",
			limit:     "1000",
			ratio:     "1.5",
			want:      Limit{Source: SourceContainer, ContainerLimit: 1000, GoMemLimit: 800, Ratio: DefaultMemoryRatio},
			wantSet:   800,
			configure: true,
		},
		{
			name:  "invalid limit",
			limit: "lots",
			want:  Limit{Source: SourceNone},
		},
		{
			name:  "negative limit",
			limit: "-5",
			want:  Limit{Source: SourceNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv(LimitEnv, tt.limit)
			t.Setenv(RatioEnv, tt.ratio)
			got := captureLimit(t)

			l := Configure()
			assert.Equal(t, tt.want, l)
			assert.Equal(t, tt.configure, l.Configured())
			if tt.configure {
				assert.Equal(t, tt.wantSet, *got)
			} else {
				assert.Equal(t, int64(-1), *got)
			}
		})
	}
}

func TestConfigureExplicitGoMemLimit(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "512MiB")
	t.Setenv(LimitEnv, "1000")

	orig := setLimit
	setLimit = func(int64) int64 { return 512 << 20 }
	t.Cleanup(func() { setLimit = orig })

	l := Configure()
	assert.Equal(t, SourceGoMemLimit, l.Source)
	assert.Equal(t, int64(512<<20), l.GoMemLimit)
	assert.Zero(t, l.ContainerLimit)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), "FormatBytes(%d)", tt.in)
	}
}
