package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/pkg/utils"
)

// DefaultSpecialty is recommended for any symptom the taxonomy does not know.
const DefaultSpecialty = "General Practitioner"

// defaultSymptomSpecialties is the built-in symptom table. Keys are
// normalized phrases; the first specialty of each entry is the primary one.
var defaultSymptomSpecialties = map[string][]string{
	"headache":         {"Neurologist", "General Practitioner"},
	"fever":            {"General Practitioner", "Infectious Disease Specialist"},
	"cough":            {"Pulmonologist", "General Practitioner"},
	"cold":             {"ENT Specialist", "General Practitioner"},
	"rash":             {"Dermatologist", "Allergist"},
	"joint pain":       {"Rheumatologist", "Orthopedist"},
	"back pain":        {"Orthopedist", "Physiotherapist"},
	"stomach pain":     {"Gastroenterologist", "General Practitioner"},
	"chest pain":       {"Cardiologist", "Emergency Medicine"},
	"fatigue":          {"General Practitioner", "Endocrinologist"},
	"anxiety":          {"Psychiatrist", "Psychologist"},
	"depression":       {"Psychiatrist", "Psychologist"},
	"insomnia":         {"Sleep Specialist", "Psychiatrist"},
	"vision problems":  {"Ophthalmologist", "Neurologist"},
	"hearing problems": {"ENT Specialist", "Audiologist"},
	"stomach":          {"Gastroenterologist"},
	"chest":            {"Cardiologist"},
	"child":            {"Pediatrician"},
	"baby":             {"Pediatrician"},
}

// commonSymptoms is the display list offered to visitors.
var commonSymptoms = []string{
	"Headache",
	"Fever",
	"Cough",
	"Cold",
	"Rash",
	"Joint Pain",
	"Back Pain",
	"Stomach Pain",
	"Chest Pain",
	"Fatigue",
	"Anxiety",
	"Depression",
	"Insomnia",
	"Vision Problems",
	"Hearing Problems",
}

// taxonomySchema requires every symptom to map to at least one specialty.
const taxonomySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "array",
    "minItems": 1,
    "items": {"type": "string", "minLength": 1}
  }
}`

// SymptomTaxonomy maps normalized symptom phrases to medical specialties.
// It is immutable after construction and safe for concurrent use.
type SymptomTaxonomy struct {
	table map[string][]string
}

// NewSymptomTaxonomy builds a taxonomy over the built-in symptom table.
func NewSymptomTaxonomy() *SymptomTaxonomy {
	t, err := newSymptomTaxonomy(defaultSymptomSpecialties)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadSymptomTaxonomy reads a JSON object of symptom → specialties from path.
// The document is validated before use; keys are normalized.
func LoadSymptomTaxonomy(path string) (*SymptomTaxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return ParseSymptomTaxonomy(data)
}

// ParseSymptomTaxonomy validates and parses a JSON taxonomy document.
func ParseSymptomTaxonomy(data []byte) (*SymptomTaxonomy, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(taxonomySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate taxonomy: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid taxonomy: %s", result.Errors()[0].String())
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	return newSymptomTaxonomy(raw)
}

func newSymptomTaxonomy(raw map[string][]string) (*SymptomTaxonomy, error) {
	table := make(map[string][]string, len(raw))
	for symptom, specialties := range raw {
		key := utils.NormalizePhrase(symptom)
		if key == "" {
			return nil, fmt.Errorf("taxonomy contains an empty symptom key")
		}
		seen := make(map[string]struct{}, len(specialties))
		for _, existing := range table[key] {
			seen[utils.NormalizePhrase(existing)] = struct{}{}
		}
		merged := utils.AppendUnique(table[key], seen, specialties...)
		if len(merged) == 0 {
			return nil, fmt.Errorf("symptom %q maps to no specialty", symptom)
		}
		table[key] = merged
	}
	return &SymptomTaxonomy{table: table}, nil
}

// Lookup returns the specialties for an exact (normalized) symptom phrase.
func (t *SymptomTaxonomy) Lookup(symptom string) ([]string, bool) {
	specialties, ok := t.table[utils.NormalizePhrase(symptom)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), specialties...), true
}

// ResolveSpecialties returns the specialties for a symptom, falling back to
// the general practitioner for anything unrecognized. Never empty.
func (t *SymptomTaxonomy) ResolveSpecialties(symptom string) []string {
	if specialties, ok := t.Lookup(symptom); ok {
		return specialties
	}
	return []string{DefaultSpecialty}
}

// RecommendSpecialties returns the first-seen union of the specialties of every symptom.
func (t *SymptomTaxonomy) RecommendSpecialties(symptoms []string) []string {
	seen := make(map[string]struct{})
	var recommended []string
	for _, s := range symptoms {
		if utils.NormalizePhrase(s) == "" {
			continue
		}
		recommended = utils.AppendUnique(recommended, seen, t.ResolveSpecialties(s)...)
	}
	return recommended
}

// Diagnose pairs the non-empty submitted symptoms with their recommended specialties.
func (t *SymptomTaxonomy) Diagnose(symptoms []string) entities.Diagnosis {
	kept := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		if utils.NormalizePhrase(s) != "" {
			kept = append(kept, s)
		}
	}
	recommended := t.RecommendSpecialties(kept)
	if recommended == nil {
		recommended = []string{}
	}
	return entities.Diagnosis{
		Symptoms:               kept,
		RecommendedSpecialties: recommended,
	}
}

// CommonSymptoms returns the symptoms offered for quick selection.
func (t *SymptomTaxonomy) CommonSymptoms() []string {
	return append([]string(nil), commonSymptoms...)
}

// Size returns the number of known symptom phrases.
func (t *SymptomTaxonomy) Size() int {
	return len(t.table)
}
