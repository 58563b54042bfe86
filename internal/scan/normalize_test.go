package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and uppercases", " sn-100 \n", "SN-100"},
		{"drops inner whitespace", "ART 2024\t07", "ART202407"},
		{"keeps separators", "a_b.c-d", "A_B.C-D"},
		{"drops punctuation", "ab#c/1*", "ABC1"},
		{"strips accents", "Caméra-É1", "CAMERA-E1"},
		{"folds fullwidth", "ＡＢ１２", "AB12"},
		{"control characters", "X\x00Y\x1b1", "XY1"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "raw")
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}

func TestVariants(t *testing.T) {
	t.Run("Separator forms", func(t *testing.T) {
		v := Variants("ab-12_3.x")
		assert.Equal(t, "AB-12_3.X", v[0])
		assert.Contains(t, v, "AB-12-3-X")
		assert.Contains(t, v, "AB_12_3_X")
		assert.Contains(t, v, "AB.12.3.X")
		assert.Contains(t, v, "AB123X")
		assert.Contains(t, v, "AB-12_3.X")
	})

	t.Run("Deduplicated", func(t *testing.T) {
		assert.Equal(t, []string{"ABC"}, Variants("abc"))
	})

	t.Run("Apostrophe forms", func(t *testing.T) {
		v := Variants("SN'100")
		assert.Equal(t, "SN100", v[0])
		assert.Contains(t, v, "SN-100")
		assert.Contains(t, v, "SN'100")
	})

	t.Run("Never empty", func(t *testing.T) {
		assert.Equal(t, []string{""}, Variants(" \n"))
	})

	t.Run("Bounded", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			s := rapid.String().Draw(t, "raw")
			v := Variants(s)
			if len(v) == 0 || len(v) > MaxVariants {
				t.Fatalf("got %d variants for %q", len(v), s)
			}
			if v[0] != Normalize(s) {
				t.Fatalf("canonical form must come first")
			}
		})
	})
}
