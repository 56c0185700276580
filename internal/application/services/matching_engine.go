package services

import (
	"math"
	"sort"
	"strings"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/pkg/utils"
)

// MatchingEngine executes a SearchPlan against a catalog snapshot.
// It holds no state and never mutates the catalog.
type MatchingEngine struct{}

// NewMatchingEngine creates a new matching engine
func NewMatchingEngine() *MatchingEngine {
	return &MatchingEngine{}
}

// Search filters, annotates, deduplicates, sorts and truncates the catalog.
// An empty catalog or a plan matching nothing yields an empty, non-nil slice.
func (e *MatchingEngine) Search(plan entities.SearchPlan, catalog []*entities.Provider) []entities.RankedResult {
	specialties := make(map[string]struct{}, len(plan.SpecialtyIn))
	for _, s := range plan.SpecialtyIn {
		if key := utils.NormalizePhrase(s); key != "" {
			specialties[key] = struct{}{}
		}
	}

	results := make([]entities.RankedResult, 0)
	seen := make(map[string]struct{}, len(catalog))

	for _, provider := range catalog {
		if provider == nil {
			continue
		}
		if _, dup := seen[provider.ID]; dup {
			continue
		}
		if !matchesPlan(plan, specialties, provider) {
			continue
		}
		seen[provider.ID] = struct{}{}

		results = append(results, entities.RankedResult{
			Provider:           provider.Clone(),
			DistanceKm:         annotateDistance(plan.Origin, provider.Coordinates),
			MatchedSpecialties: matchedSpecialties(plan.SpecialtyIn, specialties, provider),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return rankLess(&results[i], &results[j])
	})

	if plan.Limit > 0 && len(results) > plan.Limit {
		results = results[:plan.Limit]
	}
	return results
}

func matchesPlan(plan entities.SearchPlan, specialties map[string]struct{}, p *entities.Provider) bool {
	if plan.PincodeEquals != "" && p.Pincode != plan.PincodeEquals {
		return false
	}
	if len(specialties) > 0 {
		_, listed := specialties[utils.NormalizePhrase(p.Specialty)]
		if !listed && !p.IsMultiSpecialty() {
			return false
		}
	}
	if plan.NameLike != "" &&
		!utils.ContainsFold(p.Name, plan.NameLike) &&
		!utils.ContainsFold(p.Specialty, plan.NameLike) {
		return false
	}
	if plan.NameContains != "" && !utils.ContainsFold(p.Name, plan.NameContains) {
		return false
	}
	return true
}

// annotateDistance returns nil when either side is missing or the distance
// cannot be computed; that candidate simply has an unknown distance.
func annotateDistance(origin, coords *entities.Coordinate) *float64 {
	if origin == nil || coords == nil {
		return nil
	}
	d, err := DistanceKm(*origin, *coords)
	if err != nil {
		return nil
	}
	return &d
}

// matchedSpecialties reports which requested specialties a provider covers:
// its own specialty when requested, otherwise every requested specialty for
// a multi-specialty clinic.
func matchedSpecialties(requested []string, index map[string]struct{}, p *entities.Provider) []string {
	if len(requested) == 0 {
		return []string{}
	}
	if _, ok := index[utils.NormalizePhrase(p.Specialty)]; ok {
		return []string{p.Specialty}
	}
	if p.IsMultiSpecialty() {
		return append([]string(nil), requested...)
	}
	return []string{}
}

// rankLess orders by known distance ascending (unknown last), rating
// descending (unknown last), name case-insensitively, then ID.
func rankLess(a, b *entities.RankedResult) bool {
	switch {
	case a.DistanceKm != nil && b.DistanceKm == nil:
		return true
	case a.DistanceKm == nil && b.DistanceKm != nil:
		return false
	case a.DistanceKm != nil && *a.DistanceKm != *b.DistanceKm:
		return *a.DistanceKm < *b.DistanceKm
	}

	ar, aok := knownRating(a.Rating)
	br, bok := knownRating(b.Rating)
	switch {
	case aok && !bok:
		return true
	case !aok && bok:
		return false
	case aok && ar != br:
		return ar > br
	}

	if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

func knownRating(r *float64) (float64, bool) {
	if r == nil || math.IsNaN(*r) || math.IsInf(*r, 0) {
		return 0, false
	}
	return *r, true
}
