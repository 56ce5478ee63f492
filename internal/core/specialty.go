package core

import (
	"strings"

	"medichat/pkg"
)

// specialtyRule maps a keyword group to a specialty. Rules are evaluated in
// order and the first group with a matching keyword wins, so more specific
// groups must stay ahead of broader ones.
type specialtyRule struct {
	keywords  []string
	specialty pkg.Specialty
}

var specialtyRules = []specialtyRule{
	{[]string{"tim", "huyết áp"}, pkg.SpecialtyCardiology},
	{[]string{"da", "mụn"}, pkg.SpecialtyDermatology},
	{[]string{"tai", "mũi", "họng"}, pkg.SpecialtyENT},
}

// MatchSpecialty classifies symptom text into a specialty by
// case-insensitive substring search over the ordered rule list. Text that
// matches no rule maps to general medicine.
func MatchSpecialty(text string) pkg.Specialty {
	lower := strings.ToLower(text)
	for _, rule := range specialtyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.specialty
			}
		}
	}
	return pkg.SpecialtyGeneral
}
