// SPDX-License-Identifier: MPL-2.0

package unitcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrEmptyClassName is returned by DecodeClass for documents without a name.
var ErrEmptyClassName = errors.New("class document has no name")

type (
	// Class is the decoded form of a code object.
	Class struct {
		Name       string            `json:"name"`
		Access     Flags             `json:"access"`
		Super      string            `json:"super,omitempty"`
		Interfaces []string          `json:"interfaces,omitempty"`
		Fields     []Member          `json:"fields,omitempty"`
		Methods    []Member          `json:"methods,omitempty"`
		Attributes map[string]string `json:"attributes,omitempty"`
	}

	// Member is a field or method of a Class. Desc is the type descriptor;
	// together with Name it identifies the member.
	Member struct {
		Name   string `json:"name"`
		Desc   string `json:"desc"`
		Access Flags  `json:"access"`
	}
)

// DecodeClass parses a class document.
func DecodeClass(raw []byte) (*Class, error) {
	var c Class
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode class: %w", err)
	}
	if c.Name == "" {
		return nil, ErrEmptyClassName
	}
	return &c, nil
}

// EncodeClass serializes c.
func EncodeClass(c *Class) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode class %s: %w", c.Name, err)
	}
	return data, nil
}

// Implements reports whether iface is among the declared interfaces.
func (c *Class) Implements(iface string) bool {
	for _, i := range c.Interfaces {
		if i == iface {
			return true
		}
	}
	return false
}

// Field returns the field named name with descriptor desc.
func (c *Class) Field(name, desc string) *Member {
	return findMember(c.Fields, name, desc)
}

// Method returns the method named name with descriptor desc.
func (c *Class) Method(name, desc string) *Member {
	return findMember(c.Methods, name, desc)
}

func findMember(members []Member, name, desc string) *Member {
	for i := range members {
		if members[i].Name == name && members[i].Desc == desc {
			return &members[i]
		}
	}
	return nil
}

// ResourcePath returns the origin-relative path of the class document for
// identifier id.
func ResourcePath(id string) string {
	return path.Join("classes", strings.ReplaceAll(id, ".", "/")+".json")
}

// IdentifierFromPath is the inverse of ResourcePath. ok is false if p is not
// a class document path.
func IdentifierFromPath(p string) (id string, ok bool) {
	rest, found := strings.CutPrefix(path.Clean(p), "classes/")
	if !found {
		return "", false
	}
	rest, found = strings.CutSuffix(rest, ".json")
	if !found || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(rest, "/", "."), true
}
