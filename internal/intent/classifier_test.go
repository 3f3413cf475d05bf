package intent

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// keywordEmbedder produces one dimension per tracked keyword so that
// similarity behaves predictably in tests.
type keywordEmbedder struct {
	keywords []string
	calls    int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	lower := strings.ToLower(text)
	vec := make([]float64, len(e.keywords)+1)
	vec[len(e.keywords)] = 0.1 // keeps the vector non-zero
	for i, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func newTestClassifier(t *testing.T) (*Classifier, *keywordEmbedder) {
	t.Helper()
	emb := &keywordEmbedder{keywords: []string{
		"trabajo", "siembra", "cosecha", "gast", "costo", "campo", "hect",
		"cliente", "personal", "empleado", "complet", "borrar", "eliminar",
		"listar", "mostrar", "pendiente",
	}}
	return NewClassifier(emb, 0.5, testLogger()), emb
}

func TestClassifyPicksClosestIntent(t *testing.T) {
	c, _ := newTestClassifier(t)
	ctx := context.Background()

	cases := []struct {
		text string
		want string
	}{
		{"crear campo nuevo de 90 hectareas", CreateField},
		{"gasté mucho en gasoil, registrá el costo", CreateCost},
		{"borrar eliminar ese registro", DeleteRecord},
	}
	for _, tc := range cases {
		got, err := c.Classify(ctx, tc.text)
		if err != nil {
			t.Fatalf("Classify(%q): %v", tc.text, err)
		}
		if got.Intent != tc.want {
			t.Errorf("Classify(%q) = %s (%.2f), want %s", tc.text, got.Intent, got.Score, tc.want)
		}
	}
}

func TestClassifyBelowThreshold(t *testing.T) {
	c, _ := newTestClassifier(t)

	got, err := c.Classify(context.Background(), "zzz qqq nada relacionado")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if c.Accepts(got) {
		t.Errorf("unrelated message accepted with score %.2f", got.Score)
	}
}

func TestCentroidsEmbeddedOnce(t *testing.T) {
	c, emb := newTestClassifier(t)
	ctx := context.Background()

	if _, err := c.Classify(ctx, "crear campo"); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	afterFirst := emb.calls
	if _, err := c.Classify(ctx, "crear otro campo"); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// Second call embeds only the message, not the example corpus again.
	if emb.calls != afterFirst+1 {
		t.Errorf("embed calls = %d after second classify, want %d", emb.calls, afterFirst+1)
	}
}

func TestLoadExamplesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intents.yaml")
	content := "saludo:\n  - hola\n  - buen día\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	emb := &keywordEmbedder{keywords: []string{"hola", "día"}}
	c := NewClassifier(emb, 0.5, testLogger())
	if err := c.LoadExamples(path); err != nil {
		t.Fatalf("LoadExamples: %v", err)
	}

	got, err := c.Classify(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Intent != "saludo" {
		t.Errorf("intent = %q, want saludo", got.Intent)
	}

	// Empty example lists are rejected.
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("vacio: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c2 := NewClassifier(emb, 0.5, testLogger())
	if err := c2.LoadExamples(bad); err == nil {
		t.Error("empty intent accepted")
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors = %v, want 1", got)
	}
	if got := cosine([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := cosine([]float64{1, 0}, []float64{1, 0, 0}); got != 0 {
		t.Errorf("mismatched dims = %v, want 0", got)
	}
}
