package labels_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"sediment-analysis-backend/internal/labels"
)

func TestResolve_KnownClasses(t *testing.T) {
	expected := map[int]string{
		0: "erythrocyte",
		1: "leukocyte",
		2: "epithelial_cell",
		3: "crystal",
		4: "cast",
		5: "bacteria",
		6: "yeast",
	}

	for idx, name := range expected {
		assert.Equal(t, name, labels.Resolve(idx))
		assert.NotEqual(t, labels.Unknown, labels.Resolve(idx))
	}
}

func TestResolve_UnknownClasses(t *testing.T) {
	for _, idx := range []int{-1, 7, 42, 1000} {
		assert.Equal(t, labels.Unknown, labels.Resolve(idx))
	}
}

func TestResolveDisplay(t *testing.T) {
	assert.Equal(t, "Eritrocito", labels.ResolveDisplay(0))
	assert.Equal(t, "Bacteria", labels.ResolveDisplay(5))
	assert.Equal(t, "Desconocido", labels.ResolveDisplay(99))
}

func TestAll_OrderedByIndex(t *testing.T) {
	all := labels.All()
	assert.Len(t, all, 7)
	assert.Equal(t, "erythrocyte", all[0])
	assert.Equal(t, "yeast", all[6])
}

func TestEmptyCounts_CoversEveryClassAtZero(t *testing.T) {
	counts := labels.EmptyCounts()
	assert.Len(t, counts, 7)
	for _, name := range labels.All() {
		count, ok := counts[name]
		assert.True(t, ok, "missing class %s", name)
		assert.Zero(t, count)
	}
}
