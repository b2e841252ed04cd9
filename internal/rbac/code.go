package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard is the segment that matches every module or action.
const Wildcard = "*"

// GlobalWildcard grants every permission in the system.
const GlobalWildcard = "*:*"

// ErrInvalidCode indicates a permission code that does not follow the
// "module:action", "module:*" or "*:*" grammar.
var ErrInvalidCode = errors.New("rbac: invalid permission code")

// Code is a parsed permission code. Construct it via ParseCode so malformed
// strings are rejected at the boundary instead of circulating through the
// system by convention.
type Code struct {
	Module string
	Action string
}

// ParseCode validates and parses a permission code string.
//
// Accepted forms: "module:action", "module:*" and "*:*". Action-level
// wildcards such as "*:create" are not part of the grammar.
func ParseCode(raw string) (Code, error) {
	module, action, ok := strings.Cut(raw, ":")
	if !ok || strings.Contains(action, ":") {
		return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	if !validSegment(module) || !validSegment(action) {
		return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	if module == Wildcard && action != Wildcard {
		return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	return Code{Module: module, Action: action}, nil
}

// String renders the canonical textual form.
func (c Code) String() string {
	return c.Module + ":" + c.Action
}

// IsGlobal reports whether the code is the "*:*" superuser grant.
func (c Code) IsGlobal() bool {
	return c.Module == Wildcard && c.Action == Wildcard
}

// IsModuleWildcard reports whether the code covers every action of one module.
func (c Code) IsModuleWildcard() bool {
	return c.Module != Wildcard && c.Action == Wildcard
}

// IsConcrete reports whether the code names a single module action.
func (c Code) IsConcrete() bool {
	return c.Module != Wildcard && c.Action != Wildcard
}

// ModuleWildcard returns the "module:*" code covering this code's module.
func (c Code) ModuleWildcard() string {
	return c.Module + ":" + Wildcard
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	if s == Wildcard {
		return true
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
