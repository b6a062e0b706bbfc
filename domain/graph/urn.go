package graph

import (
	"fmt"
	"strings"
)

// URN uniquely identifies a declaration within a stack.
//
// Format:
//
//	urn:aksgraph:<stack>::<project>::<type>::<name>
type URN string

const urnPrefix = "urn:aksgraph:"

// NewURN builds the URN of a declaration.
func NewURN(stack, project, typ, name string) URN {
	return URN(fmt.Sprintf("%s%s::%s::%s::%s", urnPrefix, stack, project, typ, name))
}

// Name returns the logical name part of the URN.
func (u URN) Name() string {
	parts := u.parts()
	if parts == nil {
		return ""
	}
	return parts[3]
}

// Type returns the type token part of the URN.
func (u URN) Type() string {
	parts := u.parts()
	if parts == nil {
		return ""
	}
	return parts[2]
}

// IsValid reports whether u is well formed.
func (u URN) IsValid() bool { return u.parts() != nil }

func (u URN) parts() []string {
	s := string(u)
	if !strings.HasPrefix(s, urnPrefix) {
		return nil
	}
	parts := strings.SplitN(strings.TrimPrefix(s, urnPrefix), "::", 4)
	if len(parts) != 4 || parts[3] == "" {
		return nil
	}
	return parts
}

// PackageOf returns the package portion of a type token, e.g. "azure-native"
// for "azure-native:resources:ResourceGroup". Explicit provider tokens
// ("aksgraph:providers:<pkg>") resolve to <pkg>.
func PackageOf(typ string) string {
	if strings.HasPrefix(typ, providerTypePrefix) {
		return strings.TrimPrefix(typ, providerTypePrefix)
	}
	pkg, _, _ := strings.Cut(typ, ":")
	return pkg
}
