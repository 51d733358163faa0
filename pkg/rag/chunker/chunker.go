package chunker

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Strategy selects how window ends are placed.
type Strategy string

const (
	// StrategyFixed cuts every window at exactly ChunkSize runes.
	StrategyFixed Strategy = "fixed"
	// StrategyStructured pulls a window end back to the nearest paragraph,
	// line, sentence or word boundary when one lies past the overlap region.
	StrategyStructured Strategy = "structured"
)

// DefaultSeparators are tried in order when looking for a structural boundary.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

var ErrInvalidConfig = errors.New("invalid chunk configuration")

// Config is the chunk policy of a deployment. Sizes are counted in
// Unicode code points, not bytes or tokens.
type Config struct {
	ChunkSize  int
	Overlap    int
	Strategy   Strategy
	Separators []string
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.Overlap, c.ChunkSize)
	}
	switch c.Strategy {
	case "", StrategyFixed, StrategyStructured:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	return nil
}

type Chunker struct {
	cfg        Config
	separators [][]rune
	logger     *zap.Logger
}

// New validates cfg and returns a Chunker. A bad policy fails here, never at Chunk time.
func New(cfg Config, logger *zap.Logger) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyFixed
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	runeSeps := make([][]rune, 0, len(seps))
	for _, s := range seps {
		if s != "" {
			runeSeps = append(runeSeps, []rune(s))
		}
	}

	return &Chunker{cfg: cfg, separators: runeSeps, logger: logger}, nil
}

func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk splits text into ordered windows of at most ChunkSize runes where
// each window starts exactly Overlap runes before the previous one ended.
// Empty text yields nil.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		end := start + c.cfg.ChunkSize
		if end >= total {
			chunks = append(chunks, string(runes[start:total]))
			break
		}
		if c.cfg.Strategy == StrategyStructured {
			end = c.boundary(runes, start, end)
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.cfg.Overlap
	}

	c.logger.Debug("document chunked",
		zap.Int("runes", total),
		zap.Int("chunks", len(chunks)),
		zap.String("strategy", string(c.cfg.Strategy)),
	)
	return chunks
}

// boundary returns the latest separator end in (start+overlap, end].
// The lower bound keeps every window longer than the overlap so the walk always advances.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	minEnd := start + c.cfg.Overlap + 1
	for _, sep := range c.separators {
		for cut := end; cut >= minEnd; cut-- {
			if cut-len(sep) < start {
				break
			}
			if hasSuffixAt(runes, cut, sep) {
				return cut
			}
		}
	}
	return end
}

func hasSuffixAt(runes []rune, cut int, sep []rune) bool {
	from := cut - len(sep)
	for i, r := range sep {
		if runes[from+i] != r {
			return false
		}
	}
	return true
}

// Split is a convenience for a one-off fixed-width split.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	c, err := New(Config{ChunkSize: chunkSize, Overlap: overlap, Strategy: StrategyFixed}, nil)
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}
