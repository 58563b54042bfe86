package scan

import (
	"strings"

	"equiptrack-backend/internal/domain"
)

const (
	DefaultSimilarityThreshold = 0.70
	// DefaultMinSimilarityLength: codes this short or shorter are never fuzzy matched.
	DefaultMinSimilarityLength = 3
)

type MatchMethod string

const (
	MatchExact      MatchMethod = "exact"
	MatchPartial    MatchMethod = "partial"
	MatchSimilarity MatchMethod = "similarity"
)

type MatchField string

const (
	FieldID            MatchField = "id"
	FieldArticleNumber MatchField = "article_number"
	FieldSerialNumber  MatchField = "serial_number"
	FieldName          MatchField = "name"
	FieldQRCode        MatchField = "qr_code"
)

// Match is a resolved record plus how it was found.
type Match struct {
	Equipment domain.Equipment `json:"equipment"`
	Instance  *domain.Instance `json:"instance,omitempty"`
	Method    MatchMethod      `json:"method"`
	Field     MatchField       `json:"field"`
	Variant   string           `json:"variant"`
	Score     float64          `json:"score"`
}

// Resolution is the outcome of a lookup. A nil Match means not found; the
// attempted variants are kept for diagnostics.
type Resolution struct {
	Match    *Match   `json:"match,omitempty"`
	Variants []string `json:"variants"`
}

func (r Resolution) Found() bool { return r.Match != nil }

// Resolver runs the exact, partial and similarity tiers in that order.
// It holds no state besides its thresholds and is safe for concurrent use.
type Resolver struct {
	threshold float64
	minLength int
}

func NewResolver(threshold float64, minLength int) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	if minLength < 0 {
		minLength = DefaultMinSimilarityLength
	}
	return &Resolver{threshold: threshold, minLength: minLength}
}

func DefaultResolver() *Resolver {
	return NewResolver(DefaultSimilarityThreshold, DefaultMinSimilarityLength)
}

type fieldValue struct {
	field MatchField
	value string
}

func normalizedFields(eq domain.Equipment, fields ...MatchField) []fieldValue {
	out := make([]fieldValue, 0, len(fields))
	for _, f := range fields {
		var v string
		switch f {
		case FieldID:
			v = eq.ID
		case FieldArticleNumber:
			v = eq.ArticleNumber
		case FieldSerialNumber:
			v = eq.SerialNumber
		case FieldName:
			v = eq.Name
		}
		if n := Normalize(v); n != "" {
			out = append(out, fieldValue{field: f, value: n})
		}
	}
	return out
}

// Resolve maps raw input onto at most one record of the catalog.
// Earlier tiers always win; within a tier the earliest variant, then the
// earliest catalog entry, wins.
func (r *Resolver) Resolve(raw string, catalog *domain.Catalog) Resolution {
	variants := Variants(raw)
	res := Resolution{Variants: variants}
	if catalog == nil {
		return res
	}

	if m := r.exact(variants, catalog); m != nil {
		res.Match = m
		return res
	}
	if m := r.partial(variants, catalog); m != nil {
		res.Match = m
		return res
	}
	res.Match = r.similar(variants, catalog)
	return res
}

func (r *Resolver) exact(variants []string, catalog *domain.Catalog) *Match {
	for _, v := range variants {
		if v == "" {
			continue
		}
		for _, eq := range catalog.Equipment {
			for _, fv := range normalizedFields(eq, FieldID, FieldArticleNumber, FieldSerialNumber) {
				if fv.value == v {
					return &Match{Equipment: eq, Method: MatchExact, Field: fv.field, Variant: v, Score: 1}
				}
			}
		}
	}

	// unit labels come after the record fields
	for _, v := range variants {
		if v == "" {
			continue
		}
		for i := range catalog.Instances {
			in := catalog.Instances[i]
			if Normalize(in.QRCode) != v {
				continue
			}
			eq, ok := catalog.FindEquipment(in.EquipmentID)
			if !ok {
				continue
			}
			return &Match{Equipment: eq, Instance: &in, Method: MatchExact, Field: FieldQRCode, Variant: v, Score: 1}
		}
	}
	return nil
}

func (r *Resolver) partial(variants []string, catalog *domain.Catalog) *Match {
	for _, v := range variants {
		if v == "" {
			continue
		}
		for _, eq := range catalog.Equipment {
			for _, fv := range normalizedFields(eq, FieldArticleNumber, FieldSerialNumber, FieldName) {
				if strings.Contains(fv.value, v) || strings.Contains(v, fv.value) {
					return &Match{Equipment: eq, Method: MatchPartial, Field: fv.field, Variant: v, Score: 1}
				}
			}
		}
	}
	return nil
}

// TODO: the first candidate over the threshold wins even when a later one
// scores higher; switch to best-score once operators confirm they want that.
func (r *Resolver) similar(variants []string, catalog *domain.Catalog) *Match {
	for _, v := range variants {
		if len([]rune(v)) <= r.minLength {
			continue
		}
		for _, eq := range catalog.Equipment {
			for _, fv := range normalizedFields(eq, FieldArticleNumber, FieldSerialNumber) {
				if len([]rune(fv.value)) <= r.minLength {
					continue
				}
				if score := Similarity(v, fv.value); score >= r.threshold {
					return &Match{Equipment: eq, Method: MatchSimilarity, Field: fv.field, Variant: v, Score: score}
				}
			}
		}
	}
	return nil
}
