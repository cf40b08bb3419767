package mapping

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"manifest/internal"
	"manifest/internal/config"
	"manifest/internal/util"
)

// Confidence assigned per resolution tier.
const (
	ConfidenceExact      = 1.0
	ConfidenceCaseFold   = 0.95
	ConfidenceNormalized = 0.9
	ConfidenceFuzzy      = 0.8
	ConfidenceAIFallback = 0.1
	fuzzyDiceThreshold   = 0.85
	maxAICandidates      = 8
	maxLabelLength       = 60
)

// Suggester is the AI field-mapping collaborator.
type Suggester interface {
	MapField(ctx context.Context, header string, candidates []string) (internal.FieldSuggestion, error)
}

// Options scope one lookup. Overrides take precedence over every built-in
// table.
type Options struct {
	DocumentType internal.DocumentType
	Overrides    map[string]internal.Field
	UseAI        bool
}

type table struct {
	exact      map[string]internal.Field
	lower      map[string]internal.Field
	normalized map[string]internal.Field
}

type Mapper struct {
	tables   map[internal.DocumentType]*table
	synonyms map[string]internal.Field
	ai       Suggester
	cache    *Cache
	logger   *zap.Logger
}

// NewMapper builds the per-document-type tables from the built-in defaults
// with file entries merged on top. ai and cache may be nil.
func NewMapper(file config.MappingFile, ai Suggester, cache *Cache, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mapper{
		tables:   map[internal.DocumentType]*table{},
		synonyms: map[string]internal.Field{},
		ai:       ai,
		cache:    cache,
		logger:   logger,
	}

	for k, v := range synonyms {
		m.synonyms[k] = v
	}
	for k, v := range file.Synonyms {
		f := internal.Field(strings.TrimSpace(v))
		if !internal.IsCanonical(f) {
			logger.Warn("ignoring synonym for unknown field", zap.String("header", k), zap.String("field", v))
			continue
		}
		m.synonyms[util.NormalizeHeader(k)] = f
	}

	for _, docType := range []internal.DocumentType{internal.DocShipmentManifest, internal.DocDeliveryOrder, internal.DocLoadPlan} {
		entries := map[string]internal.Field{}
		for _, f := range internal.CanonicalFields {
			entries[string(f)] = f
		}
		for k, v := range commonExact {
			entries[k] = v
		}
		for k, v := range docTypeExact[docType] {
			entries[k] = v
		}
		for k, v := range file.DocumentTypes[string(docType)] {
			f := internal.Field(strings.TrimSpace(v))
			if !internal.IsCanonical(f) {
				logger.Warn("ignoring mapping for unknown field",
					zap.String("documentType", string(docType)), zap.String("header", k), zap.String("field", v))
				continue
			}
			entries[k] = f
		}
		m.tables[docType] = buildTable(entries)
	}
	return m
}

func buildTable(entries map[string]internal.Field) *table {
	t := &table{
		exact:      entries,
		lower:      make(map[string]internal.Field, len(entries)),
		normalized: make(map[string]internal.Field, len(entries)),
	}
	for k, v := range entries {
		t.lower[lowerKey(k)] = v
		t.normalized[util.NormalizeHeader(k)] = v
		t.normalized[util.NormalizeHeader(splitCamel(k))] = v
	}
	return t
}

func (m *Mapper) table(docType internal.DocumentType) *table {
	if t, ok := m.tables[docType]; ok {
		return t
	}
	return m.tables[internal.DocShipmentManifest]
}

// Map resolves one header. Unresolved headers come back as a misc_<slug>
// field so their values can be kept aside from the canonical schema.
func (m *Mapper) Map(ctx context.Context, header string, opts Options) internal.FieldMapping {
	if fm, ok := m.MapStatic(header, opts); ok {
		return fm
	}
	trimmed := strings.TrimSpace(header)
	if opts.UseAI && m.ai != nil && IsLabelLike(trimmed) {
		fm := m.mapWithAI(ctx, trimmed)
		if fm.Field == internal.FieldUnknown {
			fm.Field = internal.MiscField(trimmed)
		}
		return fm
	}
	return internal.FieldMapping{Field: internal.MiscField(trimmed)}
}

// MapStatic runs the rule-based tiers only.
func (m *Mapper) MapStatic(header string, opts Options) (internal.FieldMapping, bool) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return internal.FieldMapping{}, false
	}

	if f, ok := opts.Overrides[header]; ok && internal.IsCanonical(f) {
		return internal.FieldMapping{Field: f, Confidence: ConfidenceExact}, true
	}
	t := m.table(opts.DocumentType)
	if f, ok := t.exact[header]; ok {
		return internal.FieldMapping{Field: f, Confidence: ConfidenceExact}, true
	}

	lower := lowerKey(trimmed)
	for k, f := range opts.Overrides {
		if lowerKey(k) == lower && internal.IsCanonical(f) {
			return internal.FieldMapping{Field: f, Confidence: ConfidenceCaseFold}, true
		}
	}
	if f, ok := t.lower[lower]; ok {
		return internal.FieldMapping{Field: f, Confidence: ConfidenceCaseFold}, true
	}
	norm := util.NormalizeHeader(trimmed)
	if norm == "" {
		return internal.FieldMapping{}, false
	}
	if f, ok := t.normalized[norm]; ok {
		return internal.FieldMapping{Field: f, Confidence: ConfidenceNormalized}, true
	}

	if f, ok := m.synonyms[norm]; ok {
		return internal.FieldMapping{Field: f, Confidence: ConfidenceFuzzy}, true
	}
	if f, ok := m.nearestSynonym(norm); ok {
		return internal.FieldMapping{Field: f, Confidence: ConfidenceFuzzy}, true
	}
	return internal.FieldMapping{}, false
}

// nearestSynonym accepts a near-miss spelling ("delivry address"). Short keys
// are skipped since two-letter bigram sets match too easily.
func (m *Mapper) nearestSynonym(norm string) (internal.Field, bool) {
	if len(norm) < 5 {
		return "", false
	}
	best := 0.0
	var bestKey string
	for key := range m.synonyms {
		if len(key) < 5 {
			continue
		}
		score := util.DiceCoefficient(norm, key)
		if score > best || (score == best && key < bestKey) {
			best = score
			bestKey = key
		}
	}
	if best >= fuzzyDiceThreshold {
		return m.synonyms[bestKey], true
	}
	return "", false
}

func (m *Mapper) mapWithAI(ctx context.Context, header string) internal.FieldMapping {
	candidates := m.Candidates(header)
	key := CacheKey(header, candidates)
	if m.cache != nil {
		if fm, ok := m.cache.Get(key); ok {
			return fm
		}
	}

	suggestion, err := m.ai.MapField(ctx, header, candidates)
	if err != nil {
		m.logger.Warn("ai mapping failed", zap.String("header", header), zap.Error(err))
		return internal.FieldMapping{Field: internal.FieldUnknown, Confidence: ConfidenceAIFallback, AIMapped: true}
	}

	field := internal.Field(strings.TrimSpace(suggestion.MappedField))
	if !internal.IsCanonical(field) {
		m.logger.Debug("ai suggested field outside schema",
			zap.String("header", header), zap.String("suggested", suggestion.MappedField))
		return internal.FieldMapping{Field: internal.FieldUnknown, Confidence: ConfidenceAIFallback, AIMapped: true}
	}

	fm := internal.FieldMapping{Field: field, Confidence: clamp01(suggestion.Confidence), AIMapped: true}
	if m.cache != nil {
		m.cache.Set(key, fm)
	}
	return fm
}

// Candidates returns the canonical fields most similar to header, best first.
func (m *Mapper) Candidates(header string) []string {
	norm := util.NormalizeHeader(header)
	scores := make(map[internal.Field]float64, len(internal.CanonicalFields))
	for _, f := range internal.CanonicalFields {
		scores[f] = util.DiceCoefficient(norm, util.NormalizeHeader(splitCamel(string(f))))
	}
	for key, f := range m.synonyms {
		if s := util.DiceCoefficient(norm, key); s > scores[f] {
			scores[f] = s
		}
	}

	fields := append([]internal.Field(nil), internal.CanonicalFields...)
	sort.SliceStable(fields, func(i, j int) bool { return scores[fields[i]] > scores[fields[j]] })
	if len(fields) > maxAICandidates {
		fields = fields[:maxAICandidates]
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// IsLabelLike reports whether a cell could plausibly be a column label, so
// data values are never sent to the collaborator.
func IsLabelLike(s string) bool {
	if s == "" || len([]rune(s)) > maxLabelLength {
		return false
	}
	return util.HasLetter(s) && !util.LooksNumeric(s)
}

func lowerKey(s string) string {
	return strings.ToLower(util.CollapseSpaces(s))
}

// splitCamel turns "shipToCustomer" into "ship To Customer".
func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
