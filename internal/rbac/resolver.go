package rbac

import "sort"

// EffectiveSet is the union of permission codes reachable through every role a
// user holds. It is derived state: always reconstructible from storage.
type EffectiveSet map[string]struct{}

// NewEffectiveSet builds an EffectiveSet from a slice of permission codes.
func NewEffectiveSet(codes []string) EffectiveSet {
	set := make(EffectiveSet, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// Contains reports whether the exact code is present.
func (s EffectiveSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the sorted code list, mainly for API responses.
func (s EffectiveSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Resolve decides whether the effective set grants the requested code.
//
// Precedence, most specific first: exact match, then the module wildcard
// "module:*", then the global wildcard "*:*". The requested code must be a
// concrete "module:action"; anything else is unmatchable and denied, because
// authorization failures fail closed.
func Resolve(effective EffectiveSet, requested string) bool {
	code, err := ParseCode(requested)
	if err != nil || !code.IsConcrete() {
		return false
	}
	if effective.Contains(requested) {
		return true
	}
	if effective.Contains(code.ModuleWildcard()) {
		return true
	}
	return effective.Contains(GlobalWildcard)
}
