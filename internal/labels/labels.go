// Package labels translates detector class indices into the clinical
// vocabulary used for urine sediment analysis. The detector only reports
// numeric indices; everything downstream keys on these names.
package labels

import "sort"

// Unknown is returned for any index outside the known set. Detections with
// unrecognized indices are still counted, never rejected, so a newer model
// emitting extra classes keeps working against an older backend.
const Unknown = "unknown"

var classNames = map[int]string{
	0: "erythrocyte",
	1: "leukocyte",
	2: "epithelial_cell",
	3: "crystal",
	4: "cast",
	5: "bacteria",
	6: "yeast",
}

// displayNames carries the Spanish names shown in the clinician UI.
var displayNames = map[int]string{
	0: "Eritrocito",
	1: "Leucocito",
	2: "Célula Epitelial",
	3: "Cristal",
	4: "Cilindro",
	5: "Bacteria",
	6: "Levadura",
}

// Resolve returns the clinical name for a detector class index.
func Resolve(classIndex int) string {
	if name, ok := classNames[classIndex]; ok {
		return name
	}
	return Unknown
}

// ResolveDisplay returns the display-locale name for a detector class index.
func ResolveDisplay(classIndex int) string {
	if name, ok := displayNames[classIndex]; ok {
		return name
	}
	return "Desconocido"
}

// All returns every known class name ordered by class index.
func All() []string {
	indices := make([]int, 0, len(classNames))
	for i := range classNames {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	names := make([]string, len(indices))
	for i, idx := range indices {
		names[i] = classNames[idx]
	}
	return names
}

// EmptyCounts returns a count map with every known class present at zero.
// Counts are never sparse: a class with no detections still appears.
func EmptyCounts() map[string]int {
	counts := make(map[string]int, len(classNames))
	for _, name := range classNames {
		counts[name] = 0
	}
	return counts
}
