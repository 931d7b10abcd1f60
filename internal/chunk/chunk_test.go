package chunk

import (
	"errors"
	"strings"
	"testing"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := Split("hello world", 1000, 200)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Errorf("Split() = %v, want single chunk with full text", chunks)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	t.Parallel()

	chunks, err := Split("", 1000, 200)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Split(\"\") = %v, want no chunks", chunks)
	}
}

func TestSplit_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split("some text", tt.size, tt.overlap)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Split(size=%d, overlap=%d) error = %v, want ErrInvalidParams", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestSplit_CountFormula(t *testing.T) {
	t.Parallel()

	// count = ceil((len - overlap) / (size - overlap)) for len > size
	tests := []struct {
		name          string
		length        int
		size, overlap int
		want          int
	}{
		{"2500 chars at 1000/200", 2500, 1000, 200, 3},
		{"exact two chunks", 1800, 1000, 200, 2},
		{"one over boundary", 1001, 1000, 200, 2},
		{"no overlap", 3000, 1000, 0, 3},
		{"large input", 10000, 1000, 200, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text := strings.Repeat("a", tt.length)
			chunks, err := Split(text, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}

			step := tt.size - tt.overlap
			wantFormula := (tt.length - tt.overlap + step - 1) / step
			if wantFormula != tt.want {
				t.Fatalf("test case inconsistent: formula gives %d, case says %d", wantFormula, tt.want)
			}
			if len(chunks) != tt.want {
				t.Errorf("Split() produced %d chunks, want %d", len(chunks), tt.want)
			}
		})
	}
}

func TestSplit_Reconstruction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		text          string
		size, overlap int
	}{
		{"ascii", strings.Repeat("abcdefghij", 250), 1000, 200},
		{"multibyte", strings.Repeat("héllо wörld ", 300), 100, 25},
		{"no overlap", strings.Repeat("x y z ", 500), 128, 0},
		{"uneven tail", strings.Repeat("q", 1234), 100, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chunks, err := Split(tt.text, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}

			// Concatenating chunks with overlaps removed must reconstruct the input.
			var b strings.Builder
			for i, c := range chunks {
				runes := []rune(c)
				if i == 0 {
					b.WriteString(c)
					continue
				}
				b.WriteString(string(runes[tt.overlap:]))
			}
			if b.String() != tt.text {
				t.Errorf("reconstructed text does not match original (lens %d vs %d)", b.Len(), len(tt.text))
			}
		})
	}
}

func TestSplit_ChunksOverlapExactly(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("0123456789", 100) // 1000 runes
	chunks, err := Split(text, 300, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		tail := string(prev[len(prev)-50:])
		head := string(cur[:50])
		if tail != head {
			t.Errorf("chunk %d head %q does not match previous tail %q", i, head, tail)
		}
	}
}

func TestSplitDefault(t *testing.T) {
	t.Parallel()

	chunks, err := SplitDefault(strings.Repeat("a", 2500))
	if err != nil {
		t.Fatalf("SplitDefault() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("SplitDefault(2500 chars) produced %d chunks, want 3", len(chunks))
	}
}
