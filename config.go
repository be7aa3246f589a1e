package bbtree

import (
	"fmt"
	"math"
)

const (
	// DefaultMaxDepth is the depth ceiling of a tree if not configured otherwise.
	DefaultMaxDepth = 65534
	// DefaultEpsilon is the default tolerance for comparing values.
	DefaultEpsilon = 1e-9
	// DefaultFeasTol is the default feasibility tolerance.
	DefaultFeasTol = 1e-6
	// DefaultInfinity is the default threshold for values to be treated as infinite.
	DefaultInfinity = 1e20
	// DefaultPathInitSize is the initial capacity of the path arrays.
	DefaultPathInitSize = 16
	// DefaultArrayGrowth is the growth factor of the tree's working arrays.
	DefaultArrayGrowth = 1.2
)

// maxReproPMark is the largest value of a node's subtree repropagation stamp.
const maxReproPMark = 511

// Config configures a search tree.
type Config struct {
	// MaxDepth is the maximum depth a node may have.
	MaxDepth int
	// SubrootInterval makes every focus node in a depth divisible by this
	// interval a subroot. 0 disables subroots.
	SubrootInterval int
	// Epsilon is the tolerance for comparisons of values.
	Epsilon float64
	// FeasTol is the tolerance for feasibility and integrality checks.
	FeasTol float64
	// Infinity is the threshold for values to be treated as infinite.
	Infinity float64
	// PathInitSize is the initial capacity of the active path.
	PathInitSize int
	// ArrayGrowth is the growth factor for the path, children and siblings arrays.
	ArrayGrowth float64
	// ReproOnCutoff marks a node for repropagation if applying its domain
	// changes yields an empty domain, to allow conflict analysis.
	ReproOnCutoff bool
	// KeepProbingLPState keeps the LP state after probing even if the LP had
	// not been solved before probing started.
	KeepProbingLPState bool
}

func (cfg Config) normalized() Config {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.FeasTol == 0 {
		cfg.FeasTol = DefaultFeasTol
	}
	if cfg.Infinity == 0 {
		cfg.Infinity = DefaultInfinity
	}
	if cfg.PathInitSize == 0 {
		cfg.PathInitSize = DefaultPathInitSize
	}
	if cfg.ArrayGrowth == 0 {
		cfg.ArrayGrowth = DefaultArrayGrowth
	}
	return cfg
}

func (cfg Config) validate() error {
	cfg = cfg.normalized()
	if cfg.MaxDepth < 1 || cfg.MaxDepth > DefaultMaxDepth {
		return fmt.Errorf("%w: max depth %d out of range [1,%d]", ErrInvalidConfig, cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.SubrootInterval < 0 {
		return fmt.Errorf("%w: negative subroot interval", ErrInvalidConfig)
	}
	if cfg.Epsilon < 0 || cfg.FeasTol < 0 {
		return fmt.Errorf("%w: tolerances must not be negative", ErrInvalidConfig)
	}
	if cfg.Infinity <= 1 || math.IsInf(cfg.Infinity, 0) {
		return fmt.Errorf("%w: infinity must be a finite value > 1", ErrInvalidConfig)
	}
	if cfg.PathInitSize < 1 {
		return fmt.Errorf("%w: path init size must be positive", ErrInvalidConfig)
	}
	if cfg.ArrayGrowth < 1 {
		return fmt.Errorf("%w: array growth factor must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// growSize calculates the capacity for an array holding at least num elements.
func (cfg Config) growSize(capacity, num int) int {
	if num <= capacity {
		return capacity
	}
	if capacity < cfg.PathInitSize {
		capacity = cfg.PathInitSize
	}
	for capacity < num {
		next := int(cfg.ArrayGrowth * float64(capacity))
		if next <= capacity {
			next = capacity + 1
		}
		capacity = next
	}
	return capacity
}

// --- Comparisons -----------------------------------------------------------

func (cfg Config) isInfinity(x float64) bool {
	return x >= cfg.Infinity
}

func (cfg Config) isEQ(a, b float64) bool {
	return math.Abs(a-b) <= cfg.Epsilon
}

func (cfg Config) isLE(a, b float64) bool {
	return a <= b+cfg.Epsilon
}

func (cfg Config) isGE(a, b float64) bool {
	return a >= b-cfg.Epsilon
}

func (cfg Config) isLT(a, b float64) bool {
	return a < b-cfg.Epsilon
}

func (cfg Config) isFeasEQ(a, b float64) bool {
	return math.Abs(a-b) <= cfg.FeasTol
}

func (cfg Config) isFeasIntegral(x float64) bool {
	return math.Abs(x-math.Round(x)) <= cfg.FeasTol
}

func (cfg Config) feasFloor(x float64) float64 {
	return math.Floor(x + cfg.FeasTol)
}

func (cfg Config) feasCeil(x float64) float64 {
	return math.Ceil(x - cfg.FeasTol)
}
