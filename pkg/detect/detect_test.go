package detect

import (
	"math"
	"testing"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{
			name: "identical boxes",
			a:    Box{0, 0, 10, 10},
			b:    Box{0, 0, 10, 10},
			want: 1.0,
		},
		{
			name: "disjoint boxes",
			a:    Box{0, 0, 10, 10},
			b:    Box{20, 20, 30, 30},
			want: 0.0,
		},
		{
			name: "shifted cup",
			a:    Box{0, 0, 10, 10},
			b:    Box{2, 0, 12, 10},
			want: 80.0 / 120.0,
		},
		{
			name: "touching edges",
			a:    Box{0, 0, 10, 10},
			b:    Box{10, 0, 20, 10},
			want: 0.0,
		},
		{
			name: "contained box",
			a:    Box{0, 0, 10, 10},
			b:    Box{2, 2, 8, 8},
			want: 36.0 / 100.0,
		},
		{
			name: "quarter overlap",
			a:    Box{0, 0, 10, 10},
			b:    Box{5, 5, 15, 15},
			want: 25.0 / 175.0,
		},
		{
			name: "zero area first",
			a:    Box{5, 5, 5, 5},
			b:    Box{0, 0, 10, 10},
			want: 0.0,
		},
		{
			name: "zero area both",
			a:    Box{5, 5, 5, 5},
			b:    Box{5, 5, 5, 5},
			want: 0.0,
		},
		{
			name: "inverted coordinates",
			a:    Box{10, 10, 0, 0},
			b:    Box{0, 0, 10, 10},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if !floatEquals(got, tt.want) {
				t.Errorf("IoU(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// IoU is symmetric.
			if rev := IoU(tt.b, tt.a); !floatEquals(rev, got) {
				t.Errorf("IoU(%v, %v) = %v, want symmetric %v", tt.b, tt.a, rev, got)
			}
		})
	}
}

func TestBoxArea(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want float64
	}{
		{"unit box", Box{0, 0, 1, 1}, 1},
		{"ten by ten", Box{0, 0, 10, 10}, 100},
		{"offset box", Box{5, 5, 15, 25}, 200},
		{"degenerate point", Box{5, 5, 5, 5}, 0},
		{"degenerate line", Box{0, 0, 10, 0}, 0},
		{"inverted", Box{10, 10, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Area(); !floatEquals(got, tt.want) {
				t.Errorf("Area() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxValid(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{"normal box", Box{0, 0, 10, 10}, true},
		{"point", Box{5, 5, 5, 5}, false},
		{"horizontal line", Box{0, 5, 10, 5}, false},
		{"vertical line", Box{5, 0, 5, 10}, false},
		{"inverted", Box{10, 10, 0, 0}, false},
		{"negative coords", Box{-10, -10, -2, -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLerp(t *testing.T) {
	a := Box{0, 0, 10, 10}
	b := Box{2, 0, 12, 10}

	got := Lerp(a, b, 0.3)
	want := Box{0.6, 0, 10.6, 10}
	if !boxEquals(got, want) {
		t.Errorf("Lerp(a, b, 0.3) = %v, want %v", got, want)
	}

	if got := Lerp(a, b, 0); !boxEquals(got, a) {
		t.Errorf("Lerp(a, b, 0) = %v, want %v", got, a)
	}
	if got := Lerp(a, b, 1); !boxEquals(got, b) {
		t.Errorf("Lerp(a, b, 1) = %v, want %v", got, b)
	}
}

func boxEquals(a, b Box) bool {
	return floatEquals(a.X1, b.X1) && floatEquals(a.Y1, b.Y1) &&
		floatEquals(a.X2, b.X2) && floatEquals(a.Y2, b.Y2)
}

func TestDisplayBox(t *testing.T) {
	raw := Box{0, 0, 10, 10}
	smoothed := Box{1, 1, 11, 11}

	d := Detection{Label: "cup", Box: raw}
	if got := d.DisplayBox(); !boxEquals(got, raw) {
		t.Errorf("DisplayBox() without smoothing = %v, want raw %v", got, raw)
	}

	d.Smoothed = &smoothed
	if got := d.DisplayBox(); !boxEquals(got, smoothed) {
		t.Errorf("DisplayBox() with smoothing = %v, want %v", got, smoothed)
	}
}

func TestClassName(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "person"},
		{41, "cup"},
		{79, "toothbrush"},
		{-1, "unknown"},
		{80, "unknown"},
	}

	for _, tt := range tests {
		if got := ClassName(tt.id); got != tt.want {
			t.Errorf("ClassName(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestKnownLabel(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"person", true},
		{"Person", true},
		{"  cup  ", true},
		{"unicorn", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := KnownLabel(tt.label); got != tt.want {
			t.Errorf("KnownLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		dets []Detection
		want string
	}{
		{
			name: "empty",
			dets: nil,
			want: "nothing detected",
		},
		{
			name: "single object",
			dets: []Detection{{Label: "cup"}},
			want: "1 cup",
		},
		{
			name: "counts sorted descending",
			dets: []Detection{
				{Label: "cup"},
				{Label: "person"},
				{Label: "person"},
			},
			want: "2 persons, 1 cup",
		},
		{
			name: "ties broken alphabetically",
			dets: []Detection{
				{Label: "dog"},
				{Label: "cat"},
			},
			want: "1 cat, 1 dog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.dets); got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}
