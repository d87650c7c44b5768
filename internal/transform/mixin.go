// SPDX-License-Identifier: MPL-2.0

package transform

import (
	_ "embed"
	"fmt"
	"slices"

	"github.com/invowk/modhost/pkg/cueutil"
	"github.com/invowk/modhost/pkg/unitcode"
)

//go:embed mixin_schema.cue
var mixinSchema []byte

type (
	// MixinConfig is a decoded mixin config file.
	MixinConfig struct {
		Mixins []Mixin `json:"mixins"`
	}

	// Mixin merges members and attributes into every matching class.
	Mixin struct {
		ID         string            `json:"id,omitempty"`
		Target     string            `json:"target"`
		Priority   int               `json:"priority,omitempty"`
		Interfaces []string          `json:"interfaces,omitempty"`
		Attributes map[string]string `json:"attributes,omitempty"`
		Fields     []MixinMember     `json:"fields,omitempty"`
		Methods    []MixinMember     `json:"methods,omitempty"`
	}

	// MixinMember is a member to add when the class lacks it.
	MixinMember struct {
		Name   string   `json:"name"`
		Desc   string   `json:"desc"`
		Access []string `json:"access,omitempty"`
	}
)

// ParseMixinConfig decodes a mixin config (CUE or JSON) validated against
// the #Mixins schema.
func ParseMixinConfig(data []byte, filename string) (*MixinConfig, error) {
	result, err := cueutil.ParseAndDecode[MixinConfig](mixinSchema, data, "#Mixins", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// Entries converts the config into pipeline entries owned by owner.
func (c *MixinConfig) Entries(owner string) ([]Entry, error) {
	entries := make([]Entry, 0, len(c.Mixins))
	for i, m := range c.Mixins {
		target, err := Glob(m.Target)
		if err != nil {
			return nil, fmt.Errorf("mixin %d: %w", i, err)
		}
		fields, err := toMembers(m.Fields)
		if err != nil {
			return nil, fmt.Errorf("mixin %d fields: %w", i, err)
		}
		methods, err := toMembers(m.Methods)
		if err != nil {
			return nil, fmt.Errorf("mixin %d methods: %w", i, err)
		}

		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%s:mixin[%d]", owner, i)
		}
		merge := &merger{
			interfaces: m.Interfaces,
			attributes: m.Attributes,
			fields:     fields,
			methods:    methods,
		}
		entries = append(entries, Entry{
			ID:        id,
			Owner:     owner,
			Target:    target,
			Priority:  m.Priority,
			Transform: merge.apply,
		})
	}
	return entries, nil
}

func toMembers(in []MixinMember) ([]unitcode.Member, error) {
	out := make([]unitcode.Member, 0, len(in))
	for _, mm := range in {
		var access unitcode.Flags
		for _, name := range mm.Access {
			f, err := unitcode.ParseFlag(name)
			if err != nil {
				return nil, err
			}
			access |= f
		}
		out = append(out, unitcode.Member{Name: mm.Name, Desc: mm.Desc, Access: access})
	}
	return out, nil
}

type merger struct {
	interfaces []string
	attributes map[string]string
	fields     []unitcode.Member
	methods    []unitcode.Member
}

func (m *merger) apply(cls *unitcode.Class) (modified, valid bool, err error) {
	for _, iface := range m.interfaces {
		if !slices.Contains(cls.Interfaces, iface) {
			cls.Interfaces = append(cls.Interfaces, iface)
			modified = true
		}
	}
	for k, v := range m.attributes {
		if cur, ok := cls.Attributes[k]; ok && cur == v {
			continue
		}
		if cls.Attributes == nil {
			cls.Attributes = map[string]string{}
		}
		cls.Attributes[k] = v
		modified = true
	}
	for _, f := range m.fields {
		if cls.Field(f.Name, f.Desc) == nil {
			cls.Fields = append(cls.Fields, f)
			modified = true
		}
	}
	for _, mt := range m.methods {
		if cls.Method(mt.Name, mt.Desc) == nil {
			cls.Methods = append(cls.Methods, mt)
			modified = true
		}
	}
	return modified, true, nil
}
