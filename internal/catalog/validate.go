package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/satslab/satslab/internal/validation"
)

// validateModules performs the structural checks the schema cannot express.
// Returns a combined error describing all problems found, or nil if valid.
func validateModules(modules []Module) error {
	var errs []string

	if len(modules) == 0 {
		errs = append(errs, "no modules defined")
	}

	moduleIDs := make(map[string]bool, len(modules))
	for _, m := range modules {
		prefix := fmt.Sprintf("module %q", m.ID)
		if m.ID == "" {
			errs = append(errs, "module with empty ID")
		}
		if moduleIDs[m.ID] {
			errs = append(errs, fmt.Sprintf("duplicate module ID: %q", m.ID))
		}
		moduleIDs[m.ID] = true

		if !semver.IsValid(m.Version) {
			errs = append(errs, fmt.Sprintf("%s: invalid version %q", prefix, m.Version))
		}
		if _, ok := validation.ProfileByName(m.ProfileName); !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown validation profile %q", prefix, m.ProfileName))
		}

		questionIDs := make(map[string]bool, len(m.Questions))
		for _, q := range m.Questions {
			if questionIDs[q.ID] {
				errs = append(errs, fmt.Sprintf("%s: duplicate question ID %q", prefix, q.ID))
			}
			questionIDs[q.ID] = true
			if len(q.Choices) < 2 {
				errs = append(errs, fmt.Sprintf("%s question %q: needs at least 2 choices", prefix, q.ID))
			}
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
				errs = append(errs, fmt.Sprintf("%s question %q: correct index %d out of range", prefix, q.ID, q.CorrectIndex))
			}
		}

		taskIDs := make(map[string]bool, len(m.Tasks))
		for _, t := range m.Tasks {
			if taskIDs[t.ID] {
				errs = append(errs, fmt.Sprintf("%s: duplicate task ID %q", prefix, t.ID))
			}
			taskIDs[t.ID] = true
			if _, err := validation.ParseKind(string(t.Kind)); err != nil {
				errs = append(errs, fmt.Sprintf("%s task %q: %v", prefix, t.ID, err))
			}
			switch t.Field {
			case "", validation.FieldNormal, validation.FieldFee:
			default:
				errs = append(errs, fmt.Sprintf("%s task %q: unknown field %q", prefix, t.ID, t.Field))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func resolveProfile(m *Module) validation.Profile {
	p, _ := validation.ProfileByName(m.ProfileName)
	return m.Override.Apply(p)
}

// CompatibleVersion reports whether progress saved against module version
// saved still applies to version current. Only a major bump invalidates it.
func CompatibleVersion(saved, current string) bool {
	if !semver.IsValid(saved) || !semver.IsValid(current) {
		return false
	}
	return semver.Major(saved) == semver.Major(current)
}
