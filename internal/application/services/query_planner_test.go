package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
)

func TestPlan_EmptyCriteriaMatchesEverything(t *testing.T) {
	planner := NewQueryPlanner(NewSymptomTaxonomy())

	plan := planner.Plan(entities.SearchCriteria{})

	assert.Equal(t, entities.SearchPlan{}, plan)
}

func TestPlan_SelectedSymptomsUseFallback(t *testing.T) {
	planner := NewQueryPlanner(NewSymptomTaxonomy())

	plan := planner.Plan(entities.SearchCriteria{
		SelectedSymptoms: []string{"Chest Pain", "mystery symptom"},
		FreeTextSymptoms: "rash",
	})

	assert.Equal(t, []string{"Cardiologist", "Emergency Medicine", "General Practitioner"}, plan.SpecialtyIn)
	assert.Empty(t, plan.NameLike)
}

func TestPlan_FreeTextPhraseThenWords(t *testing.T) {
	planner := NewQueryPlanner(NewSymptomTaxonomy())

	plan, unmapped := planner.PlanWithUnmapped(entities.SearchCriteria{
		FreeTextSymptoms: "Joint Pain, severe chest ache",
	})

	assert.Equal(t, []string{"Rheumatologist", "Orthopedist", "Cardiologist"}, plan.SpecialtyIn)
	assert.Equal(t, []string{"severe", "ache"}, unmapped)
	assert.Empty(t, plan.NameLike)
}

func TestPlan_FreeTextWithoutHitsBecomesNameLike(t *testing.T) {
	planner := NewQueryPlanner(NewSymptomTaxonomy())

	plan := planner.Plan(entities.SearchCriteria{FreeTextSymptoms: "  Apollo  "})

	assert.Nil(t, plan.SpecialtyIn)
	assert.Equal(t, "Apollo", plan.NameLike)
}

func TestPlan_ExplicitSpecialtyIsAppended(t *testing.T) {
	planner := NewQueryPlanner(NewSymptomTaxonomy())

	plan := planner.Plan(entities.SearchCriteria{
		SelectedSymptoms: []string{"rash"},
		SpecialtyFilter:  "Pediatrician",
	})
	assert.Equal(t, []string{"Dermatologist", "Allergist", "Pediatrician"}, plan.SpecialtyIn)

	plan = planner.Plan(entities.SearchCriteria{
		SelectedSymptoms: []string{"rash"},
		SpecialtyFilter:  "dermatologist",
	})
	assert.Equal(t, []string{"Dermatologist", "Allergist"}, plan.SpecialtyIn)

	// free text still acts as a name matcher when only the explicit specialty is set
	plan = planner.Plan(entities.SearchCriteria{
		FreeTextSymptoms: "Apollo",
		SpecialtyFilter:  "Cardiologist",
	})
	assert.Equal(t, []string{"Cardiologist"}, plan.SpecialtyIn)
	assert.Equal(t, "Apollo", plan.NameLike)
}

func TestPlan_FiltersAreTrimmed(t *testing.T) {
	planner := NewQueryPlanner(nil)

	plan := planner.Plan(entities.SearchCriteria{
		NameFilter:    " Sharma ",
		PincodeFilter: " 400001 ",
		Limit:         5,
	})

	assert.Equal(t, "Sharma", plan.NameContains)
	assert.Equal(t, "400001", plan.PincodeEquals)
	assert.Equal(t, 5, plan.Limit)

	plan = planner.Plan(entities.SearchCriteria{Limit: -3})
	assert.Zero(t, plan.Limit)
}

func TestPlan_Origin(t *testing.T) {
	planner := NewQueryPlanner(NewSymptomTaxonomy())

	explicit := &entities.Coordinate{Latitude: 19.07, Longitude: 72.87}
	plan := planner.Plan(entities.SearchCriteria{Origin: explicit, LocationQuery: "18.52,73.85"})
	require.NotNil(t, plan.Origin)
	assert.Equal(t, *explicit, *plan.Origin)
	assert.NotSame(t, explicit, plan.Origin)

	plan = planner.Plan(entities.SearchCriteria{
		Origin:        &entities.Coordinate{Latitude: math.NaN(), Longitude: 1},
		LocationQuery: " 18.52, 73.85 ",
	})
	require.NotNil(t, plan.Origin)
	assert.Equal(t, entities.Coordinate{Latitude: 18.52, Longitude: 73.85}, *plan.Origin)

	plan = planner.Plan(entities.SearchCriteria{LocationQuery: "400001"})
	assert.Nil(t, plan.Origin)

	plan = planner.Plan(entities.SearchCriteria{LocationQuery: "Andheri West, Mumbai"})
	assert.Nil(t, plan.Origin)
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  entities.Coordinate
		ok    bool
	}{
		{name: "comma", input: "12.97,77.59", want: entities.Coordinate{Latitude: 12.97, Longitude: 77.59}, ok: true},
		{name: "comma and space", input: "12.97, 77.59", want: entities.Coordinate{Latitude: 12.97, Longitude: 77.59}, ok: true},
		{name: "space only", input: "-33.86 151.2", want: entities.Coordinate{Latitude: -33.86, Longitude: 151.2}, ok: true},
		{name: "empty", input: ""},
		{name: "single value", input: "12.97"},
		{name: "text", input: "north,south"},
		{name: "out of range", input: "91,10"},
		{name: "nan", input: "NaN,10"},
		{name: "three values", input: "1,2,3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCoordinate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferSpecialties_IgnoresExplicitSpecialty(t *testing.T) {
	planner := NewQueryPlanner(nil)

	assert.Equal(t, []string{"Dermatologist", "Allergist"}, planner.InferSpecialties(entities.SearchCriteria{
		FreeTextSymptoms: "rash",
		SpecialtyFilter:  "Pediatrician",
	}))
	assert.Empty(t, planner.InferSpecialties(entities.SearchCriteria{SpecialtyFilter: "Pediatrician"}))
	assert.Empty(t, planner.InferSpecialties(entities.SearchCriteria{FreeTextSymptoms: "Apollo"}))
}
