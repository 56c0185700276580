package services

import (
	"strconv"
	"strings"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/pkg/utils"
)

// QueryPlanner turns raw search criteria into a SearchPlan.
// Planning is a pure transformation: no I/O and no failure modes.
type QueryPlanner struct {
	taxonomy *SymptomTaxonomy
}

// NewQueryPlanner creates a planner over the given taxonomy
func NewQueryPlanner(taxonomy *SymptomTaxonomy) *QueryPlanner {
	if taxonomy == nil {
		taxonomy = NewSymptomTaxonomy()
	}
	return &QueryPlanner{taxonomy: taxonomy}
}

// Plan normalizes criteria into a filter and ranking description.
func (p *QueryPlanner) Plan(criteria entities.SearchCriteria) entities.SearchPlan {
	plan, _ := p.plan(criteria)
	return plan
}

// PlanWithUnmapped behaves like Plan and also reports the free-text tokens
// that had no taxonomy entry.
func (p *QueryPlanner) PlanWithUnmapped(criteria entities.SearchCriteria) (entities.SearchPlan, []string) {
	return p.plan(criteria)
}

func (p *QueryPlanner) plan(criteria entities.SearchCriteria) (entities.SearchPlan, []string) {
	var plan entities.SearchPlan
	inferred, unmapped := p.inferSpecialties(criteria)
	if len(inferred) > 0 {
		plan.SpecialtyIn = inferred
	} else {
		plan.NameLike = strings.TrimSpace(criteria.FreeTextSymptoms)
	}

	// an explicit specialty narrows the search but does not count as inferred
	if specialty := strings.TrimSpace(criteria.SpecialtyFilter); specialty != "" {
		seen := make(map[string]struct{}, len(plan.SpecialtyIn)+1)
		for _, s := range plan.SpecialtyIn {
			seen[utils.NormalizePhrase(s)] = struct{}{}
		}
		plan.SpecialtyIn = utils.AppendUnique(plan.SpecialtyIn, seen, specialty)
	}

	plan.NameContains = strings.TrimSpace(criteria.NameFilter)
	plan.PincodeEquals = strings.TrimSpace(criteria.PincodeFilter)
	plan.Origin = resolveOrigin(criteria)
	if criteria.Limit > 0 {
		plan.Limit = criteria.Limit
	}

	return plan, unmapped
}

// InferSpecialties returns the specialties implied by the symptoms of the
// criteria, ignoring any explicit specialty filter. Empty when nothing maps.
func (p *QueryPlanner) InferSpecialties(criteria entities.SearchCriteria) []string {
	inferred, _ := p.inferSpecialties(criteria)
	return inferred
}

// inferSpecialties prefers the selected symptoms (with fallback) over free text.
func (p *QueryPlanner) inferSpecialties(criteria entities.SearchCriteria) ([]string, []string) {
	if hasNonBlank(criteria.SelectedSymptoms) {
		return p.taxonomy.RecommendSpecialties(criteria.SelectedSymptoms), nil
	}
	if strings.TrimSpace(criteria.FreeTextSymptoms) != "" {
		return p.inferFromFreeText(criteria.FreeTextSymptoms)
	}
	return nil, nil
}

// inferFromFreeText looks each comma separated segment up as a phrase, then
// each of its words. Only exact hits contribute; misses are dropped.
func (p *QueryPlanner) inferFromFreeText(text string) ([]string, []string) {
	seen := make(map[string]struct{})
	var (
		specialties []string
		unmapped    []string
	)

	for _, segment := range utils.SplitSegments(text) {
		if found, ok := p.taxonomy.Lookup(segment); ok {
			specialties = utils.AppendUnique(specialties, seen, found...)
			continue
		}
		for _, word := range utils.Words(segment) {
			if found, ok := p.taxonomy.Lookup(word); ok {
				specialties = utils.AppendUnique(specialties, seen, found...)
			} else {
				unmapped = append(unmapped, word)
			}
		}
	}
	return specialties, unmapped
}

// resolveOrigin prefers explicit coordinates, then a "lat,lon" location string.
// Anything else (pincode, area name) leaves the origin undefined.
func resolveOrigin(criteria entities.SearchCriteria) *entities.Coordinate {
	if criteria.Origin != nil && criteria.Origin.IsFinite() {
		origin := *criteria.Origin
		return &origin
	}
	if coord, ok := ParseCoordinate(criteria.LocationQuery); ok {
		return &coord
	}
	return nil
}

// ParseCoordinate parses "lat,lon" (optionally space separated) into a
// coordinate. Non-numeric, non-finite or out-of-range values are rejected.
func ParseCoordinate(s string) (entities.Coordinate, bool) {
	parts := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(parts) != 2 {
		return entities.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return entities.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return entities.Coordinate{}, false
	}
	coord := entities.Coordinate{Latitude: lat, Longitude: lon}
	if !coord.InRange() {
		return entities.Coordinate{}, false
	}
	return coord, true
}

func hasNonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
