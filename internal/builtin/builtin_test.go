// SPDX-License-Identifier: MPL-2.0

package builtin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/internal/lifecycle"
	"github.com/invowk/modhost/internal/namespace"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitcode"
)

func TestPlatform(t *testing.T) {
	t.Parallel()

	src, err := Platform()
	if err != nil {
		t.Fatalf("Platform() error = %v", err)
	}
	root := namespace.NewRoot(src)

	iface, err := root.ResolveClass(unitapi.CapabilityInterface)
	if err != nil {
		t.Fatalf("resolve %s: %v", unitapi.CapabilityInterface, err)
	}
	if !iface.Access.Has(unitcode.Interface) || len(iface.Methods) != len(hookNames) {
		t.Errorf("capability interface = %+v", iface)
	}

	entry, err := root.ResolveClass(LoggingUnit)
	if err != nil {
		t.Fatalf("resolve %s: %v", LoggingUnit, err)
	}
	if !entry.Implements(unitapi.CapabilityInterface) || entry.Super != ObjectClass {
		t.Errorf("logging unit class = %+v", entry)
	}
	if entry.Method("Init", hookDesc) == nil {
		t.Error("logging unit class lacks Init")
	}
}

func TestPlatformClasses_AreFresh(t *testing.T) {
	t.Parallel()

	a := PlatformClasses()
	a[1].Methods[0].Name = "changed"
	if PlatformClasses()[1].Methods[0].Name != "PreInit" {
		t.Error("PlatformClasses shares state between calls")
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := unitapi.NewRegistry()
	Register(r)

	if !slices.Equal(r.Entrypoints(), []string{LoggingUnit}) {
		t.Errorf("Entrypoints() = %v", r.Entrypoints())
	}
	if !slices.Equal(r.CodeModifiers(), []string{SealModifier, StampModifier}) {
		t.Errorf("CodeModifiers() = %v", r.CodeModifiers())
	}
	if _, ok := unitapi.DefaultRegistry.Entrypoint(LoggingUnit); !ok {
		t.Error("LoggingUnit missing from the default registry")
	}
}

func TestModifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		transform    unitapi.TransformFunc
		cls          unitcode.Class
		wantModified bool
		check        func(*unitcode.Class) bool
	}{
		{
			name:         "stamp sets attribute",
			transform:    stamp,
			cls:          unitcode.Class{Name: "a.B"},
			wantModified: true,
			check:        func(c *unitcode.Class) bool { return c.Attributes[StampAttribute] == "true" },
		},
		{
			name:      "stamp is idempotent",
			transform: stamp,
			cls:       unitcode.Class{Name: "a.B", Attributes: map[string]string{StampAttribute: "true"}},
			check:     func(c *unitcode.Class) bool { return len(c.Attributes) == 1 },
		},
		{
			name:         "seal marks final",
			transform:    seal,
			cls:          unitcode.Class{Name: "a.B", Access: unitcode.Public},
			wantModified: true,
			check:        func(c *unitcode.Class) bool { return c.Access == unitcode.Public|unitcode.Final },
		},
		{
			name:      "seal skips interfaces",
			transform: seal,
			cls:       unitcode.Class{Name: "a.I", Access: unitcode.Public | unitcode.Interface},
			check:     func(c *unitcode.Class) bool { return !c.Access.Has(unitcode.Final) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cls := tt.cls
			modified, valid, err := tt.transform(&cls)
			if err != nil || !valid {
				t.Fatalf("transform = %v, %v, %v", modified, valid, err)
			}
			if modified != tt.wantModified {
				t.Errorf("modified = %v, want %v", modified, tt.wantModified)
			}
			if !tt.check(&cls) {
				t.Errorf("unexpected class %+v", cls)
			}
		})
	}
}

func TestLoggingUnit_EndToEnd(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := log.New(&logs)

	src, err := Platform()
	if err != nil {
		t.Fatal(err)
	}
	pipeline := transform.New(transform.WithLogger(logger))
	nsm := namespace.NewManager(namespace.NewRoot(src),
		namespace.WithPipeline(pipeline), namespace.WithLogger(logger))
	registry := unitapi.NewRegistry()
	Register(registry)
	mgr, err := lifecycle.New(lifecycle.Options{
		Namespaces: nsm,
		Pipeline:   pipeline,
		Registry:   registry,
		Logger:     logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	widget, err := unitcode.EncodeClass(&unitcode.Class{Name: "hello.Widget", Access: unitcode.Public})
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"unit.json": `{"name": "hello", "entrypoint": "` + LoggingUnit + `", "version": "1.0.0",
			"codeModifiers": ["` + StampModifier + `", "` + SealModifier + `"]}`,
		unitcode.ResourcePath("hello.Widget"): string(widget),
	}
	for rel, content := range files {
		path := filepath.Join(dir, "hello", filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	protos, diags := discovery.Scan([]string{dir}, nil)
	if len(diags) != 0 {
		t.Fatalf("Scan() diagnostics = %v", diags)
	}
	ctx := context.Background()
	rep, err := mgr.LoadBatch(ctx, protos)
	if err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}
	if !slices.Equal(rep.Loaded, []string{"hello"}) || !rep.OK() {
		t.Fatalf("Loaded = %v, failures = %v", rep.Loaded, rep.Failures())
	}

	unit, _ := mgr.Lookup("hello")
	cls, err := unit.Namespace.ResolveClass("hello.Widget")
	if err != nil {
		t.Fatal(err)
	}
	if cls.Attributes[StampAttribute] != "true" || !cls.Access.Has(unitcode.Final) {
		t.Errorf("hello.Widget was not transformed: %+v", cls)
	}

	sym, err := unit.Namespace.Resolve(LoggingUnit)
	if err != nil {
		t.Fatal(err)
	}
	if sym.Namespace != namespace.RootName || sym.Transformed {
		t.Errorf("entrypoint symbol = %+v, want untouched root class", sym)
	}

	mgr.Shutdown(ctx)
	out := logs.String()
	for _, hook := range hookNames {
		if !strings.Contains(out, "hook="+hook) {
			t.Errorf("log lacks hook %s:\n%s", hook, out)
		}
	}
}
