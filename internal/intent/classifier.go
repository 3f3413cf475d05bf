package intent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"

	"agrobot/internal/domain"

	"gopkg.in/yaml.v3"
)

// Result is the winning intent for a message plus its similarity score.
type Result struct {
	Intent string
	Score  float64
}

// Classifier scores a message against per-intent centroids built from
// curated example phrases. Centroids are embedded once, on first use.
type Classifier struct {
	embedder  domain.Embedder
	logger    *slog.Logger
	threshold float64
	examples  map[string][]string

	initOnce  sync.Once
	initErr   error
	centroids map[string][]float64
}

func NewClassifier(embedder domain.Embedder, threshold float64, logger *slog.Logger) *Classifier {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Classifier{
		embedder:  embedder,
		logger:    logger,
		threshold: threshold,
		examples:  defaultExamples(),
	}
}

// LoadExamples replaces the built-in taxonomy with one read from a YAML
// file mapping intent name to example phrases. Must be called before the
// first Classify.
func (c *Classifier) LoadExamples(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read intent examples %s: %w", path, err)
	}
	var loaded map[string][]string
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("cannot parse intent examples %s: %w", path, err)
	}
	for name, phrases := range loaded {
		if len(phrases) == 0 {
			return fmt.Errorf("intent %q has no example phrases", name)
		}
	}
	if len(loaded) == 0 {
		return fmt.Errorf("intent examples %s are empty", path)
	}
	c.examples = loaded
	return nil
}

// Threshold exposes the cutoff so callers can log the decision.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Classify embeds the message and returns the best-scoring intent. The
// caller compares Score against Threshold to decide whether to proceed.
func (c *Classifier) Classify(ctx context.Context, text string) (*Result, error) {
	if err := c.ensureCentroids(ctx); err != nil {
		return nil, err
	}
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding message: %w", err)
	}

	best := &Result{Score: -1}
	// Deterministic iteration keeps tie-breaks stable.
	names := make([]string, 0, len(c.centroids))
	for name := range c.centroids {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if s := cosine(vec, c.centroids[name]); s > best.Score {
			best.Intent, best.Score = name, s
		}
	}
	c.logger.Debug("intent classified", "intent", best.Intent, "score", best.Score)
	return best, nil
}

// Accepts reports whether the score clears the threshold.
func (c *Classifier) Accepts(r *Result) bool {
	return r != nil && r.Score >= c.threshold
}

func (c *Classifier) ensureCentroids(ctx context.Context) error {
	c.initOnce.Do(func() {
		centroids := make(map[string][]float64, len(c.examples))
		for name, phrases := range c.examples {
			var sum []float64
			for _, p := range phrases {
				vec, err := c.embedder.Embed(ctx, p)
				if err != nil {
					c.initErr = fmt.Errorf("embedding examples for %s: %w", name, err)
					return
				}
				if sum == nil {
					sum = make([]float64, len(vec))
				}
				if len(vec) != len(sum) {
					c.initErr = fmt.Errorf("embedding dimension mismatch for %s", name)
					return
				}
				for i, v := range vec {
					sum[i] += v
				}
			}
			for i := range sum {
				sum[i] /= float64(len(phrases))
			}
			centroids[name] = sum
		}
		c.centroids = centroids
	})
	return c.initErr
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
