// Package location turns free-text addresses into coarse coordinates using a
// small built-in gazetteer. It stands in for a real geocoder and never fails:
// anything it cannot place comes back with method "none".
package location

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"manifest/internal"
)

const country = "Malaysia"

const (
	confidenceDirect         = 0.9
	confidenceDirectNoCoords = 0.7
	confidenceKeyword        = 0.8
	confidenceStateKeyword   = 0.6
	confidencePattern        = 0.6
	confidenceContext        = 0.4
)

var (
	rePostcode = regexp.MustCompile(`\b(\d{5})\b`)
	reSpaces   = regexp.MustCompile(`\s+`)

	addressHints = []string{
		"jalan", "jln", "lorong", "taman", "tmn", "persiaran", "lebuh", "kawasan perindustrian",
		"industrial", "warehouse", "gudang", "ship from", "origin", "pickup", "address", "lot ",
	}
)

type matcher struct {
	re    *regexp.Regexp
	place place
}

type stateMatcher struct {
	re    *regexp.Regexp
	state stateCentroid
}

// Fields are explicit address columns from a manifest row.
type Fields struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

type Resolver struct {
	places []matcher
	states []stateMatcher
}

func NewResolver() *Resolver {
	sorted := append([]place(nil), places...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].name) > len(sorted[j].name) })
	r := &Resolver{}
	for _, p := range sorted {
		r.places = append(r.places, matcher{re: wordPattern(p.name), place: p})
	}
	seen := map[string]bool{}
	for _, s := range statesByPrefix {
		if seen[s.state] {
			continue
		}
		seen[s.state] = true
		name := strings.ToLower(strings.TrimPrefix(s.state, "Wilayah Persekutuan "))
		r.states = append(r.states, stateMatcher{re: wordPattern(name), state: s})
	}
	sort.Slice(r.states, func(i, j int) bool { return r.states[i].state.state < r.states[j].state.state })
	return r
}

func wordPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + strings.ReplaceAll(regexp.QuoteMeta(name), " ", `\s+`) + `\b`)
}

// Resolve places raw, falling back to hints found only in ctxText (for
// example the sheet's origin line).
func (r *Resolver) Resolve(_ context.Context, raw, ctxText string) internal.LocationDetail {
	raw = clean(raw)
	out := internal.LocationDetail{RawInput: raw, ResolutionMethod: internal.ResolutionNone}
	if raw == "" && strings.TrimSpace(ctxText) == "" {
		return out
	}

	if p, ok := r.matchPlace(raw); ok {
		r.fillPlace(&out, p, internal.ResolutionMockKeyword, confidenceKeyword)
		out.PostalCode = postcodeIn(raw)
		return out
	}
	if pc := postcodeIn(raw); pc != "" {
		if s, ok := statesByPrefix[pc[:2]]; ok {
			fillState(&out, s, internal.ResolutionEstimatedPattern, confidencePattern)
			out.PostalCode = pc
			return out
		}
	}
	if s, ok := r.matchState(raw); ok {
		fillState(&out, s, internal.ResolutionMockKeyword, confidenceStateKeyword)
		return out
	}

	ctxText = clean(ctxText)
	if p, ok := r.matchPlace(ctxText); ok {
		r.fillPlace(&out, p, internal.ResolutionEstimatedPatternContext, confidenceContext)
		return out
	}
	if pc := postcodeIn(ctxText); pc != "" {
		if s, ok := statesByPrefix[pc[:2]]; ok {
			fillState(&out, s, internal.ResolutionEstimatedPatternContext, confidenceContext)
			return out
		}
	}
	return out
}

// ResolveFields uses explicit city/state/postcode columns when a row has them.
// It falls back to Resolve on the street text when none are set.
func (r *Resolver) ResolveFields(ctx context.Context, f Fields) internal.LocationDetail {
	city, state, pc := clean(f.City), clean(f.State), clean(f.PostalCode)
	if city == "" && state == "" && pc == "" {
		return r.Resolve(ctx, f.Street, "")
	}

	out := internal.LocationDetail{
		Street:               clean(f.Street),
		City:                 city,
		State:                state,
		PostalCode:           pc,
		Country:              country,
		RawInput:             strings.Join(nonEmpty(f.Street, city, pc, state), ", "),
		ResolutionMethod:     internal.ResolutionDirectFields,
		ResolutionConfidence: confidenceDirectNoCoords,
	}
	if p, ok := r.matchPlace(city); ok {
		out.Latitude, out.Longitude = ptr(p.lat), ptr(p.lng)
		if out.State == "" {
			out.State = p.state
		}
		out.ResolutionConfidence = confidenceDirect
		return out
	}
	var s stateCentroid
	var ok bool
	if len(pc) >= 2 {
		s, ok = statesByPrefix[pc[:2]]
	}
	if !ok {
		s, ok = r.matchState(state)
	}
	if ok {
		out.Latitude, out.Longitude = ptr(s.lat), ptr(s.lng)
		if out.State == "" {
			out.State = s.state
		}
	}
	return out
}

// LooksLikeLocation reports whether text carries an address or place hint.
func (r *Resolver) LooksLikeLocation(text string) bool {
	lower := strings.ToLower(text)
	for _, h := range addressHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	if postcodeIn(text) != "" {
		return true
	}
	_, ok := r.matchPlace(text)
	return ok
}

func (r *Resolver) matchPlace(text string) (place, bool) {
	if text == "" {
		return place{}, false
	}
	for _, m := range r.places {
		if m.re.MatchString(text) {
			return m.place, true
		}
	}
	return place{}, false
}

func (r *Resolver) matchState(text string) (stateCentroid, bool) {
	if text == "" {
		return stateCentroid{}, false
	}
	for _, m := range r.states {
		if m.re.MatchString(text) {
			return m.state, true
		}
	}
	return stateCentroid{}, false
}

func (r *Resolver) fillPlace(out *internal.LocationDetail, p place, method internal.ResolutionMethod, conf float64) {
	out.City = p.city
	out.State = p.state
	out.Country = country
	out.Latitude, out.Longitude = ptr(p.lat), ptr(p.lng)
	out.ResolutionMethod = method
	out.ResolutionConfidence = conf
}

func fillState(out *internal.LocationDetail, s stateCentroid, method internal.ResolutionMethod, conf float64) {
	out.State = s.state
	out.Country = country
	out.Latitude, out.Longitude = ptr(s.lat), ptr(s.lng)
	out.ResolutionMethod = method
	out.ResolutionConfidence = conf
}

func postcodeIn(text string) string {
	for _, m := range rePostcode.FindAllStringSubmatch(text, -1) {
		if _, ok := statesByPrefix[m[1][:2]]; ok {
			return m[1]
		}
	}
	return ""
}

func clean(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = clean(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
