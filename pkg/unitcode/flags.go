// SPDX-License-Identifier: MPL-2.0

package unitcode

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	Public Flags = 1 << iota
	Protected
	Private
	Final
	Static
	Synthetic
	Enum
	Abstract
	Interface
)

// Flags is a bitset of access and kind modifiers.
type Flags uint16

var flagNames = []struct {
	flag Flags
	name string
}{
	{Public, "public"},
	{Protected, "protected"},
	{Private, "private"},
	{Final, "final"},
	{Static, "static"},
	{Synthetic, "synthetic"},
	{Enum, "enum"},
	{Abstract, "abstract"},
	{Interface, "interface"},
}

// ParseFlag returns the flag named s.
func ParseFlag(s string) (Flags, error) {
	for _, fn := range flagNames {
		if fn.name == s {
			return fn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown access flag %q", s)
}

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool { return f&o == o }

// Set returns f with o added.
func (f Flags) Set(o Flags) Flags { return f | o }

// Clear returns f with o removed.
func (f Flags) Clear(o Flags) Flags { return f &^ o }

// Visibility returns f with the visibility bits replaced by v.
func (f Flags) Visibility(v Flags) Flags {
	return f.Clear(Public|Protected|Private) | v
}

// Names returns the flag names in canonical order.
func (f Flags) Names() []string {
	names := []string{}
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

// String returns the space-separated flag names.
func (f Flags) String() string {
	return strings.Join(f.Names(), " ")
}

// MarshalJSON encodes the flags as a list of names.
func (f Flags) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Names())
}

// UnmarshalJSON decodes a list of flag names.
func (f *Flags) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("access flags: %w", err)
	}
	var out Flags
	for _, n := range names {
		flag, err := ParseFlag(n)
		if err != nil {
			return err
		}
		out |= flag
	}
	*f = out
	return nil
}
