package mapping

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"manifest/internal"
	"manifest/internal/config"
)

type fakeSuggester struct {
	calls      atomic.Int32
	suggestion internal.FieldSuggestion
	err        error
	lastCands  []string
}

func (f *fakeSuggester) MapField(_ context.Context, _ string, candidates []string) (internal.FieldSuggestion, error) {
	f.calls.Add(1)
	f.lastCands = candidates
	return f.suggestion, f.err
}

func newTestMapper(t *testing.T, ai Suggester) (*Mapper, *Cache) {
	t.Helper()
	cache, err := NewCache(16, time.Hour)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return NewMapper(config.MappingFile{}, ai, cache, nil), cache
}

func TestMapStaticTiers(t *testing.T) {
	m, _ := newTestMapper(t, nil)
	opts := Options{DocumentType: internal.DocShipmentManifest}

	cases := []struct {
		header string
		field  internal.Field
		conf   float64
	}{
		{"Load Number", internal.FieldLoadNumber, ConfidenceExact},
		{"poNumber", internal.FieldPONumber, ConfidenceExact},
		{"  load   NUMBER ", internal.FieldLoadNumber, ConfidenceCaseFold},
		{"Load_Number:", internal.FieldLoadNumber, ConfidenceNormalized},
		{"ship to customer", internal.FieldShipToCustomer, ConfidenceCaseFold},
		{"PO #", internal.FieldPONumber, ConfidenceFuzzy},
		{"Ship To", internal.FieldShipToCustomer, ConfidenceFuzzy},
		{"Alamat", internal.FieldShipToAddress, ConfidenceFuzzy},
		{"Delivry Address", internal.FieldShipToAddress, ConfidenceFuzzy},
	}
	for _, tc := range cases {
		got := m.Map(context.Background(), tc.header, opts)
		if got.Field != tc.field || got.Confidence != tc.conf || got.AIMapped {
			t.Errorf("Map(%q) = %+v, want %s @ %v", tc.header, got, tc.field, tc.conf)
		}
	}
}

func TestCaseOnlyDifferencesStayInRange(t *testing.T) {
	m, _ := newTestMapper(t, nil)
	opts := Options{DocumentType: internal.DocShipmentManifest}
	for header := range commonExact {
		for _, variant := range []string{" " + header + " ", upper(header)} {
			if variant == header {
				continue
			}
			got := m.Map(context.Background(), variant, opts)
			if got.Confidence < 0.9 || got.Confidence > 0.95 {
				t.Errorf("Map(%q) confidence %v outside [0.9, 0.95]", variant, got.Confidence)
			}
		}
	}
}

func TestDocumentTypeTables(t *testing.T) {
	m, _ := newTestMapper(t, nil)
	got := m.Map(context.Background(), "Trip No", Options{DocumentType: internal.DocLoadPlan})
	if got.Field != internal.FieldLoadNumber || got.Confidence != ConfidenceExact {
		t.Fatalf("load plan Trip No = %+v", got)
	}
	got = m.Map(context.Background(), "Trip No", Options{DocumentType: internal.DocShipmentManifest})
	if got.Field != "misc_trip_no" || got.Confidence != 0 {
		t.Fatalf("manifest Trip No = %+v, want misc", got)
	}
}

func TestOverridesWin(t *testing.T) {
	m, _ := newTestMapper(t, nil)
	opts := Options{Overrides: map[string]internal.Field{"Customer": internal.FieldContactName, "Ref": internal.FieldLoadNumber}}
	if got := m.Map(context.Background(), "Customer", opts); got.Field != internal.FieldContactName || got.Confidence != 1 {
		t.Fatalf("override ignored: %+v", got)
	}
	if got := m.Map(context.Background(), "REF", opts); got.Field != internal.FieldLoadNumber || got.Confidence != ConfidenceCaseFold {
		t.Fatalf("case-folded override = %+v", got)
	}
}

func TestMappingFileMerges(t *testing.T) {
	file := config.MappingFile{
		DocumentTypes: map[string]map[string]string{"delivery_order": {"Ref Kastam": "orderNumber", "Bad": "notAField"}},
		Synonyms:      map[string]string{"Consignee Name": "shipToCustomer"},
	}
	m := NewMapper(file, nil, nil, nil)
	if got := m.Map(context.Background(), "Ref Kastam", Options{DocumentType: internal.DocDeliveryOrder}); got.Field != internal.FieldOrderNumber {
		t.Fatalf("file mapping ignored: %+v", got)
	}
	if got := m.Map(context.Background(), "Bad", Options{DocumentType: internal.DocDeliveryOrder}); !got.Field.IsMisc() {
		t.Fatalf("invalid file mapping accepted: %+v", got)
	}
	if got := m.Map(context.Background(), "consignee  name", Options{}); got.Field != internal.FieldShipToCustomer || got.Confidence != ConfidenceFuzzy {
		t.Fatalf("file synonym ignored: %+v", got)
	}
}

func TestAIMappingIsCached(t *testing.T) {
	ai := &fakeSuggester{suggestion: internal.FieldSuggestion{MappedField: "remarks", Confidence: 0.85}}
	m, cache := newTestMapper(t, ai)
	opts := Options{UseAI: true}

	for i := 0; i < 3; i++ {
		got := m.Map(context.Background(), "Special Handling Instructions", opts)
		if got.Field != internal.FieldRemarks || got.Confidence != 0.85 || !got.AIMapped {
			t.Fatalf("ai mapping = %+v", got)
		}
	}
	if ai.calls.Load() != 1 {
		t.Fatalf("expected one collaborator call, got %d", ai.calls.Load())
	}
	if len(ai.lastCands) == 0 || len(ai.lastCands) > maxAICandidates {
		t.Fatalf("unexpected candidate list %v", ai.lastCands)
	}
	if stats := cache.Stats(); stats.Hits != 2 || stats.Size != 1 {
		t.Fatalf("unexpected cache stats %+v", stats)
	}
}

func TestAIInvalidFieldFallsBack(t *testing.T) {
	ai := &fakeSuggester{suggestion: internal.FieldSuggestion{MappedField: "colour", Confidence: 0.99}}
	m, cache := newTestMapper(t, ai)
	got := m.Map(context.Background(), "Colour Code", Options{UseAI: true})
	if got.Field != "misc_colour_code" || got.Confidence != ConfidenceAIFallback || !got.AIMapped {
		t.Fatalf("invalid suggestion = %+v", got)
	}
	m.Map(context.Background(), "Colour Code", Options{UseAI: true})
	if ai.calls.Load() != 2 || cache.Len() != 0 {
		t.Fatalf("invalid suggestions must not be cached (calls=%d len=%d)", ai.calls.Load(), cache.Len())
	}
}

func TestAIErrorDegrades(t *testing.T) {
	ai := &fakeSuggester{err: errors.New("quota exceeded")}
	m, _ := newTestMapper(t, ai)
	got := m.Map(context.Background(), "Colour Code", Options{UseAI: true})
	if got.Field != "misc_colour_code" || got.Confidence != ConfidenceAIFallback {
		t.Fatalf("error fallback = %+v", got)
	}
}

func TestAISkippedForDataAndWhenDisabled(t *testing.T) {
	ai := &fakeSuggester{suggestion: internal.FieldSuggestion{MappedField: "remarks", Confidence: 0.9}}
	m, _ := newTestMapper(t, ai)
	for _, header := range []string{"12345", "2024-01-05", "", "this is a very long free text cell that is clearly a value and not a column label"} {
		m.Map(context.Background(), header, Options{UseAI: true})
	}
	m.Map(context.Background(), "Colour Code", Options{UseAI: false})
	if ai.calls.Load() != 0 {
		t.Fatalf("collaborator called %d times", ai.calls.Load())
	}
}

func TestCacheExpiresLazily(t *testing.T) {
	cache, err := NewCache(4, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	key := CacheKey("Colour", []string{"remarks", "description"})
	if key != CacheKey("Colour", []string{"description", "remarks"}) {
		t.Fatalf("cache key depends on candidate order")
	}
	cache.Set(key, internal.FieldMapping{Field: internal.FieldRemarks, Confidence: 0.8, AIMapped: true})

	now = now.Add(6 * 24 * time.Hour)
	if _, ok := cache.Get(key); !ok {
		t.Fatalf("entry expired early")
	}
	now = now.Add(2 * 24 * time.Hour)
	if _, ok := cache.Get(key); ok {
		t.Fatalf("entry should have expired")
	}
	stats := cache.Stats()
	if stats.Expired != 1 || stats.Size != 0 || stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCandidatesRankRelatedFieldsFirst(t *testing.T) {
	m, _ := newTestMapper(t, nil)
	cands := m.Candidates("Contact Tel")
	found := false
	for _, c := range cands[:3] {
		if c == string(internal.FieldContactNumber) || c == string(internal.FieldContactName) {
			found = true
		}
	}
	if !found {
		t.Fatalf("contact fields not ranked near top: %v", cands)
	}
}

func upper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - 32
		}
	}
	return string(out)
}
