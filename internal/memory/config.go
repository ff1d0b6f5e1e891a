package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"media-catalog/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go
	// heap. The rest covers SQLite page cache, mmap and goroutine stacks.
	DefaultMemoryRatio = 0.80

	// LimitEnv carries the container memory limit in bytes, typically from
	// the Kubernetes Downward API.
	LimitEnv = "CATALOG_MEMORY_LIMIT"

	// RatioEnv overrides DefaultMemoryRatio.
	RatioEnv = "CATALOG_MEMORY_RATIO"
)

// Source tells where the memory limit came from.
type Source string

const (
	SourceGoMemLimit Source = "GOMEMLIMIT"
	SourceContainer  Source = "container"
	SourceNone       Source = "none"
)

// Limit is the outcome of Configure.
type Limit struct {
	Source         Source
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// Configured reports whether a soft memory limit is in effect.
func (l Limit) Configured() bool {
	return l.GoMemLimit > 0
}

// setLimit is swapped in tests.
var setLimit = debug.SetMemoryLimit

// Configure sets the Go soft memory limit from the environment. An explicit
// GOMEMLIMIT wins; otherwise the limit is LimitEnv scaled by the ratio.
// Call it early in main, before the database is opened.
func Configure() Limit {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		l := Limit{Source: SourceGoMemLimit}
		if current := setLimit(-1); current > 0 && current < math.MaxInt64 {
			l.GoMemLimit = current
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return l
	}

	raw := os.Getenv(LimitEnv)
	if raw == "" {
		logging.Debug("%s not set, leaving GOMEMLIMIT unset", LimitEnv)
		return Limit{Source: SourceNone}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring invalid %s %q", LimitEnv, raw)
		return Limit{Source: SourceNone}
	}

	ratio := parseRatio(os.Getenv(RatioEnv))
	goMemLimit := int64(float64(containerLimit) * ratio)
	setLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		FormatBytes(goMemLimit), ratio*100, FormatBytes(containerLimit))

	return Limit{
		Source:         SourceContainer,
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("%s %q must be in (0, 1], using %.2f", RatioEnv, raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// FormatBytes renders b with a binary unit suffix.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
