// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/invowk/modhost/pkg/unitcode"
)

// Access rule file keywords.
const (
	KindAccessWidener          = "accessWidener"
	KindReversibleAccessSetter = "reversibleAccessSetter"
)

const (
	// OpAccessible makes the target public.
	OpAccessible AccessOp = "accessible"
	// OpExtendable makes a class public or a method at least protected, and
	// drops final.
	OpExtendable AccessOp = "extendable"
	// OpMutable drops final from a field.
	OpMutable AccessOp = "mutable"
	// OpNatural drops the synthetic flag.
	OpNatural AccessOp = "natural"
	// OpDenumerised drops the enum flag.
	OpDenumerised AccessOp = "denumerised"
)

const (
	TargetClass  AccessTarget = "class"
	TargetField  AccessTarget = "field"
	TargetMethod AccessTarget = "method"
)

const transitivePrefix = "transitive-"

type (
	// AccessOp is an access rule operation.
	AccessOp string

	// AccessTarget is the kind of element a rule applies to.
	AccessTarget string

	// AccessRule is one data line of an access rule file.
	AccessRule struct {
		Op     AccessOp
		Target AccessTarget
		// Class is the dotted identifier of the class the rule applies to.
		Class string
		// Name and Desc identify the member for field and method rules.
		Name string
		Desc string
		// CompileOnly rules are parsed but never applied at runtime.
		CompileOnly bool
		// Transitive is set by the v2 "transitive-" prefix.
		Transitive bool
		Line       int
	}

	// AccessRuleSet is a parsed access rule file.
	AccessRuleSet struct {
		Source    string
		Kind      string
		Version   string
		Namespace string
		Rules     []AccessRule

		byClass map[string][]int
	}

	// FormatError reports a malformed access rule file.
	FormatError struct {
		Source string
		Line   int
		Msg    string
	}
)

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Source, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

// ParseAccessRules reads an access rule file. The first non-comment line is
// the header "<kind> <v1|v2> intermediary" where kind is accessWidener or
// reversibleAccessSetter (case-insensitive). Every following non-empty line
// is "[compileOnly] OP class CLASS" or "[compileOnly] OP field|method CLASS
// NAME DESC". '#' starts a comment. Any violation is a *FormatError.
func ParseAccessRules(r io.Reader, source string) (*AccessRuleSet, error) {
	set := &AccessRuleSet{Source: source, byClass: map[string][]int{}}
	sc := bufio.NewScanner(r)
	lineNo := 0
	headerSeen := false

	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		if !headerSeen {
			if err := set.parseHeader(tokens, lineNo); err != nil {
				return nil, err
			}
			headerSeen = true
			continue
		}

		rule, err := set.parseRule(tokens, lineNo)
		if err != nil {
			return nil, err
		}
		set.Rules = append(set.Rules, rule)
		if !rule.CompileOnly {
			set.byClass[rule.Class] = append(set.byClass[rule.Class], len(set.Rules)-1)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &FormatError{Source: source, Line: lineNo, Msg: err.Error()}
	}
	if !headerSeen {
		return nil, &FormatError{Source: source, Msg: "missing header"}
	}
	return set, nil
}

func (s *AccessRuleSet) parseHeader(tokens []string, line int) error {
	if len(tokens) != 3 {
		return &FormatError{Source: s.Source, Line: line,
			Msg: fmt.Sprintf("header must have 3 tokens, got %d", len(tokens))}
	}
	switch {
	case strings.EqualFold(tokens[0], KindAccessWidener):
		s.Kind = KindAccessWidener
	case strings.EqualFold(tokens[0], KindReversibleAccessSetter):
		s.Kind = KindReversibleAccessSetter
	default:
		return &FormatError{Source: s.Source, Line: line, Msg: fmt.Sprintf("unknown header keyword %q", tokens[0])}
	}
	if tokens[1] != "v1" && tokens[1] != "v2" {
		return &FormatError{Source: s.Source, Line: line, Msg: fmt.Sprintf("unsupported version %q", tokens[1])}
	}
	if tokens[2] != "intermediary" {
		return &FormatError{Source: s.Source, Line: line, Msg: fmt.Sprintf("unsupported namespace %q", tokens[2])}
	}
	s.Version, s.Namespace = tokens[1], tokens[2]
	return nil
}

func (s *AccessRuleSet) parseRule(tokens []string, line int) (AccessRule, error) {
	fail := func(format string, args ...any) (AccessRule, error) {
		return AccessRule{}, &FormatError{Source: s.Source, Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	rule := AccessRule{Line: line}
	if tokens[0] == "compileOnly" {
		rule.CompileOnly = true
		tokens = tokens[1:]
		if len(tokens) == 0 {
			return fail("compileOnly without a rule")
		}
	}

	op := tokens[0]
	if rest, ok := strings.CutPrefix(op, transitivePrefix); ok {
		if s.Version != "v2" {
			return fail("%q requires version v2", op)
		}
		rule.Transitive = true
		op = rest
	}
	rule.Op = AccessOp(op)
	if !slices.Contains([]AccessOp{OpAccessible, OpExtendable, OpMutable, OpNatural, OpDenumerised}, rule.Op) {
		return fail("unknown operation %q", tokens[0])
	}

	if len(tokens) < 2 {
		return fail("missing target kind")
	}
	rule.Target = AccessTarget(tokens[1])
	want := 5
	switch rule.Target {
	case TargetClass:
		want = 3
	case TargetField, TargetMethod:
	default:
		return fail("unknown target kind %q", tokens[1])
	}
	if len(tokens) != want {
		return fail("%s rule must have %d tokens, got %d", rule.Target, want, len(tokens))
	}

	switch {
	case rule.Op == OpMutable && rule.Target != TargetField:
		return fail("mutable applies to fields only")
	case rule.Op == OpExtendable && rule.Target == TargetField:
		return fail("extendable applies to classes and methods only")
	}

	rule.Class = strings.ReplaceAll(tokens[2], "/", ".")
	if want == 5 {
		rule.Name, rule.Desc = tokens[3], tokens[4]
	}
	return rule, nil
}

// Targets reports whether any runtime rule applies to class id.
func (s *AccessRuleSet) Targets(id string) bool {
	return len(s.byClass[id]) > 0
}

// Classes returns the classes with runtime rules, in file order.
func (s *AccessRuleSet) Classes() []string {
	var out []string
	for _, r := range s.Rules {
		if !r.CompileOnly && !slices.Contains(out, r.Class) {
			out = append(out, r.Class)
		}
	}
	return out
}

// Apply rewrites the access flags of cls and reports whether any flag
// changed. Rules naming members cls does not have are ignored.
func (s *AccessRuleSet) Apply(cls *unitcode.Class) bool {
	changed := false
	for _, i := range s.byClass[cls.Name] {
		rule := s.Rules[i]
		switch rule.Target {
		case TargetClass:
			changed = applyOp(&cls.Access, rule) || changed
		case TargetField:
			if m := cls.Field(rule.Name, rule.Desc); m != nil {
				changed = applyOp(&m.Access, rule) || changed
			}
		case TargetMethod:
			if m := cls.Method(rule.Name, rule.Desc); m != nil {
				changed = applyOp(&m.Access, rule) || changed
			}
		}
	}
	return changed
}

func applyOp(flags *unitcode.Flags, rule AccessRule) bool {
	before := *flags
	f := before
	switch rule.Op {
	case OpAccessible:
		f = f.Visibility(unitcode.Public)
	case OpExtendable:
		if rule.Target == TargetClass {
			f = f.Visibility(unitcode.Public)
		} else if !f.Has(unitcode.Public) {
			f = f.Visibility(unitcode.Protected)
		}
		f = f.Clear(unitcode.Final)
	case OpMutable:
		f = f.Clear(unitcode.Final)
	case OpNatural:
		f = f.Clear(unitcode.Synthetic)
	case OpDenumerised:
		f = f.Clear(unitcode.Enum)
	}
	*flags = f
	return f != before
}
