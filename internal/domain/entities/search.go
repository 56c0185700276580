package entities

// SearchCriteria holds the raw inputs of a provider search
type SearchCriteria struct {
	FreeTextSymptoms string      `json:"free_text_symptoms,omitempty"`
	SelectedSymptoms []string    `json:"selected_symptoms,omitempty"`
	LocationQuery    string      `json:"location_query,omitempty"`
	Origin           *Coordinate `json:"origin,omitempty"`
	NameFilter       string      `json:"name_filter,omitempty"`
	SpecialtyFilter  string      `json:"specialty_filter,omitempty"`
	PincodeFilter    string      `json:"pincode_filter,omitempty"`
	Limit            int         `json:"limit,omitempty"`
}

// SearchPlan is the normalized filter and ranking description derived from SearchCriteria.
// Empty fields impose no constraint.
type SearchPlan struct {
	NameLike      string      `json:"name_like,omitempty"`
	NameContains  string      `json:"name_contains,omitempty"`
	PincodeEquals string      `json:"pincode_equals,omitempty"`
	SpecialtyIn   []string    `json:"specialty_in,omitempty"`
	Origin        *Coordinate `json:"origin,omitempty"`
	Limit         int         `json:"limit,omitempty"`
}

// RankedResult is a provider annotated for a single search.
// The embedded provider flattens into the JSON output.
type RankedResult struct {
	Provider
	DistanceKm         *float64 `json:"distance_km"`
	MatchedSpecialties []string `json:"matched_specialties"`
}

// SearchResponse is the outcome of a provider search
type SearchResponse struct {
	Results                []RankedResult `json:"providers"`
	RecommendedSpecialties []string       `json:"recommended_specialties"`
	Plan                   SearchPlan     `json:"-"`
}

// Diagnosis pairs the submitted symptoms with the recommended specialties
type Diagnosis struct {
	Symptoms               []string `json:"symptoms"`
	RecommendedSpecialties []string `json:"recommended_specialties"`
}
