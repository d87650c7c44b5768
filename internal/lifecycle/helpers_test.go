// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/internal/namespace"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitcode"
	"github.com/invowk/modhost/pkg/unitmod"
)

type (
	// eventLog records "unit:phase" strings in call order.
	eventLog struct {
		mu     sync.Mutex
		events []string
	}

	// recordingUnit logs every hook call.
	recordingUnit struct {
		name    string
		log     *eventLog
		fail    map[Phase]error
		panicOn Phase
	}

	// testEnv is a manager over a temporary unit directory.
	testEnv struct {
		t        *testing.T
		dir      string
		registry *unitapi.Registry
		pipeline *transform.Pipeline
		mgr      *Manager
		events   *eventLog

		mu        sync.Mutex
		behaviors map[string]*recordingUnit
	}

	// unitOpts customizes a unit written by addUnit.
	unitOpts struct {
		version  string
		deps     []string
		manifest map[string]any
		files    map[string]string
		class    *unitcode.Class
	}
)

func (l *eventLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, s)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func (u *recordingUnit) record(p Phase) error {
	u.log.add(u.name + ":" + string(p))
	if u.panicOn == p {
		panic("boom in " + string(p))
	}
	return u.fail[p]
}

func (u *recordingUnit) PreInit(context.Context) error       { return u.record(PhasePreInit) }
func (u *recordingUnit) Init(context.Context) error          { return u.record(PhaseInit) }
func (u *recordingUnit) PostInit(context.Context) error      { return u.record(PhasePostInit) }
func (u *recordingUnit) PreTerminate(context.Context) error  { return u.record(PhasePreTerminate) }
func (u *recordingUnit) Terminate(context.Context) error     { return u.record(PhaseTerminate) }
func (u *recordingUnit) PostTerminate(context.Context) error { return u.record(PhasePostTerminate) }
func (u *recordingUnit) Unload(context.Context) error        { return u.record(PhaseUnload) }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := log.New(io.Discard)
	pipeline := transform.New(transform.WithLogger(logger))
	root := namespace.NewRoot(namespace.StaticSource{})
	nsm := namespace.NewManager(root, namespace.WithPipeline(pipeline), namespace.WithLogger(logger))
	registry := unitapi.NewRegistry()

	mgr, err := New(Options{
		Namespaces: nsm,
		Pipeline:   pipeline,
		Registry:   registry,
		Logger:     logger,
		RetryPolicy: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{
		t:         t,
		dir:       t.TempDir(),
		registry:  registry,
		pipeline:  pipeline,
		mgr:       mgr,
		events:    &eventLog{},
		behaviors: map[string]*recordingUnit{},
	}
}

// addUnit writes unit name under the env directory and registers a
// recording factory for its entrypoint. It returns the unit directory.
func (e *testEnv) addUnit(name string, opts unitOpts) string {
	e.t.Helper()

	dir := e.writeUnit(name, opts)
	entry := name + ".Entry"
	if _, ok := e.registry.Entrypoint(entry); !ok {
		e.registry.RegisterEntrypoint(entry, func(unitapi.Setup) (unitapi.Unit, error) {
			return e.behavior(name), nil
		})
	}
	return dir
}

// writeUnit writes the unit files without touching the registry.
func (e *testEnv) writeUnit(name string, opts unitOpts) string {
	e.t.Helper()

	manifest := map[string]any{"name": name, "entrypoint": name + ".Entry", "version": "1.0.0"}
	if opts.version != "" {
		manifest["version"] = opts.version
	}
	if len(opts.deps) > 0 {
		manifest["dependencies"] = opts.deps
	}
	for k, v := range opts.manifest {
		if v == nil {
			delete(manifest, k)
			continue
		}
		manifest[k] = v
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		e.t.Fatal(err)
	}

	cls := opts.class
	if cls == nil {
		cls = &unitcode.Class{
			Name:       name + ".Entry",
			Access:     unitcode.Public | unitcode.Final,
			Interfaces: []string{unitapi.CapabilityInterface},
		}
	}
	classData, err := unitcode.EncodeClass(cls)
	if err != nil {
		e.t.Fatal(err)
	}

	files := map[string]string{
		"unit.json":                      string(data),
		unitcode.ResourcePath(cls.Name): string(classData),
	}
	for k, v := range opts.files {
		files[k] = v
	}

	dir := filepath.Join(e.dir, name)
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			e.t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			e.t.Fatal(err)
		}
	}
	return dir
}

// behavior returns the recording unit for name, creating it on first use.
func (e *testEnv) behavior(name string) *recordingUnit {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.behaviors[name]
	if !ok {
		u = &recordingUnit{name: name, log: e.events, fail: map[Phase]error{}}
		e.behaviors[name] = u
	}
	return u
}

func (e *testEnv) load(dirs ...string) (*Report, error) {
	e.t.Helper()

	protos := make([]unitmod.Prototype, 0, len(dirs))
	for _, d := range dirs {
		protos = append(protos, unitmod.Prototype{Origin: d, Enabled: true})
	}
	return e.mgr.LoadBatch(context.Background(), protos)
}

func (e *testEnv) mustLoad(dirs ...string) *Report {
	e.t.Helper()

	rep, err := e.load(dirs...)
	if err != nil {
		e.t.Fatalf("LoadBatch() error = %v", err)
	}
	return rep
}

// indexOf returns the position of event in events, or -1.
func indexOf(events []string, event string) int {
	for i, ev := range events {
		if ev == event {
			return i
		}
	}
	return -1
}

func mustStatus(t *testing.T, rep *Report, name string, want unitmod.LoadStatus) *UnitResult {
	t.Helper()

	u, ok := rep.Unit(name)
	if !ok {
		t.Fatalf("report has no unit %q: %+v", name, rep.Units)
	}
	if u.Status != want {
		t.Fatalf("%s status = %s, want %s (cause %v)", name, u.Status, want, u.Cause)
	}
	return u
}
