// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/modhost/pkg/unitmod"
)

// loadTriangle loads root "xx" with dependents "yy" and "zz".
func loadTriangle(t *testing.T) *testEnv {
	t.Helper()

	env := newTestEnv(t)
	xx := env.addUnit("xx", unitOpts{})
	yy := env.addUnit("yy", unitOpts{deps: []string{"xx"}})
	zz := env.addUnit("zz", unitOpts{deps: []string{"xx"}})
	env.mustLoad(xx, yy, zz)
	env.events.reset()
	return env
}

func TestUnload_DependentsFirst(t *testing.T) {
	t.Parallel()

	env := loadTriangle(t)

	rep, err := env.mgr.Unload(context.Background(), "xx")
	if err != nil {
		t.Fatalf("Unload() error = %v", err)
	}

	if len(rep.Unloaded) != 3 || rep.Unloaded[2] != "xx" {
		t.Errorf("Unloaded = %v, want xx last", rep.Unloaded)
	}
	events := env.events.snapshot()
	xxFirst := indexOf(events, "xx:pre-terminate")
	for _, dep := range []string{"yy", "zz"} {
		if i := indexOf(events, dep+":unload"); i < 0 || i > xxFirst {
			t.Errorf("%s finished at %d, xx started at %d: %v", dep, i, xxFirst, events)
		}
	}
	for _, name := range []string{"xx", "yy", "zz"} {
		for _, p := range terminatePhases {
			if n := countEvent(events, name+":"+string(p)); n != 1 {
				t.Errorf("%s:%s ran %d times", name, p, n)
			}
		}
	}
	if got := env.mgr.Active(); len(got) != 0 {
		t.Errorf("Active() = %v", got)
	}
	if got := env.mgr.Namespaces().Names(); len(got) != 0 {
		t.Errorf("namespaces = %v", got)
	}
}

func TestUnload_LeafKeepsDependencies(t *testing.T) {
	t.Parallel()

	env := loadTriangle(t)

	if _, err := env.mgr.Unload(context.Background(), "yy"); err != nil {
		t.Fatal(err)
	}
	if got := env.mgr.Active(); !slices.Equal(got, []string{"xx", "zz"}) {
		t.Errorf("Active() = %v", got)
	}
	if got := env.mgr.Dependents("xx"); !slices.Equal(got, []string{"zz"}) {
		t.Errorf("Dependents(xx) = %v", got)
	}
}

func TestUnload_NotActive(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if _, err := env.mgr.Unload(context.Background(), "nobody"); !errors.Is(err, ErrUnitNotActive) {
		t.Errorf("err = %v, want ErrUnitNotActive", err)
	}
	if _, err := env.mgr.Reload(context.Background(), "nobody"); !errors.Is(err, ErrUnitNotActive) {
		t.Errorf("err = %v, want ErrUnitNotActive", err)
	}
}

func TestUnload_HookErrorsAreReported(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := env.addUnit("sticky", unitOpts{})
	env.mustLoad(dir)
	b := env.behavior("sticky")
	b.fail[PhaseTerminate] = errors.New("still busy")
	b.panicOn = PhaseUnload

	rep, err := env.mgr.Unload(context.Background(), "sticky")
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.PhaseErrors) != 2 {
		t.Errorf("PhaseErrors = %+v", rep.PhaseErrors)
	}
	if env.mgr.IsActive("sticky") {
		t.Error("unit still active after unload")
	}
}

func TestReload_FiresEachPhaseOnce(t *testing.T) {
	t.Parallel()

	env := loadTriangle(t)

	rep, err := env.mgr.Reload(context.Background(), "xx")
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !rep.OK() {
		t.Fatalf("report not OK: %+v %+v", rep.Failures(), rep.PhaseErrors)
	}
	if want := []string{"xx", "yy", "zz"}; !slices.Equal(rep.Loaded, want) {
		t.Errorf("Loaded = %v, want %v", rep.Loaded, want)
	}

	events := env.events.snapshot()
	lastTerminate := indexOf(events, "xx:unload")
	for _, name := range []string{"xx", "yy", "zz"} {
		for _, p := range append(slices.Clone(terminatePhases), initPhases...) {
			if n := countEvent(events, name+":"+string(p)); n != 1 {
				t.Errorf("%s:%s ran %d times", name, p, n)
			}
		}
		if indexOf(events, name+":pre-init") < lastTerminate {
			t.Errorf("%s re-initialized before teardown finished: %v", name, events)
		}
	}
	// Barrier: every pre-init precedes every init.
	lastPre := max(indexOf(events, "xx:pre-init"), indexOf(events, "yy:pre-init"), indexOf(events, "zz:pre-init"))
	firstInit := min(indexOf(events, "xx:init"), indexOf(events, "yy:init"), indexOf(events, "zz:init"))
	if lastPre > firstInit {
		t.Errorf("init started before pre-init finished: %v", events)
	}
	if got := env.mgr.Dependents("xx"); len(got) != 2 {
		t.Errorf("Dependents(xx) = %v after reload", got)
	}
}

func TestReload_PicksUpNewVersion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := env.addUnit("evolving", unitOpts{version: "1.0.0"})
	env.mustLoad(dir)
	env.writeUnit("evolving", unitOpts{version: "1.1.0"})

	rep, err := env.mgr.Reload(context.Background(), "evolving")
	if err != nil {
		t.Fatal(err)
	}
	mustStatus(t, rep, "evolving", unitmod.LoadSuccess)
	u, ok := env.mgr.Lookup("evolving")
	if !ok || u.Descriptor.Version != "1.1.0" {
		t.Errorf("active version = %+v", u)
	}
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	env := loadTriangle(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := env.mgr.Shutdown(ctx)

	if len(rep.Unloaded) != 3 || rep.Unloaded[2] != "xx" {
		t.Errorf("Unloaded = %v, want xx last", rep.Unloaded)
	}
	if got := env.mgr.Active(); len(got) != 0 {
		t.Errorf("Active() = %v", got)
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	kept := env.addUnit("kept", unitOpts{})
	changed := env.addUnit("changed", unitOpts{})
	removed := env.addUnit("removed", unitOpts{})
	broken := env.addUnit("broken", unitOpts{})
	env.mustLoad(kept, changed, removed, broken)

	env.writeUnit("changed", unitOpts{version: "2.0.0"})
	if err := os.RemoveAll(removed); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(broken, "unit.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	added := env.addUnit("added", unitOpts{})

	rep, err := env.mgr.Refresh(context.Background(), []string{changed, removed, broken, added, changed})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := env.mgr.Active(); !slices.Equal(got, []string{"added", "broken", "changed", "kept"}) {
		t.Errorf("Active() = %v", got)
	}
	if u, _ := env.mgr.Lookup("changed"); u.Descriptor.Version != "2.0.0" {
		t.Errorf("changed version = %s", u.Descriptor.Version)
	}
	if !slices.Contains(rep.Unloaded, "removed") {
		t.Errorf("Unloaded = %v", rep.Unloaded)
	}
	if len(rep.Diagnostics) != 1 || rep.Diagnostics[0].Path != filepath.Clean(broken) {
		t.Errorf("Diagnostics = %+v", rep.Diagnostics)
	}
	if slices.Contains(rep.Unloaded, "kept") || slices.Contains(rep.Unloaded, "broken") {
		t.Errorf("untouched units were unloaded: %v", rep.Unloaded)
	}
}

func TestAffectedRoots(t *testing.T) {
	t.Parallel()

	roots := []string{"/units/alpha", "/units/beta.zip", "/units/al"}
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"file inside root", []string{"/units/alpha/classes/a/B.json"}, []string{"/units/alpha"}},
		{"root itself", []string{"/units/beta.zip"}, []string{"/units/beta.zip"}},
		{"prefix is not containment", []string{"/units/alphabet/x"}, nil},
		{"deduplicated", []string{"/units/alpha/a", "/units/alpha/b", "/units/al/c"}, []string{"/units/al", "/units/alpha"}},
		{"outside", []string{"/elsewhere"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := AffectedRoots(tt.paths, roots)
			if !slices.Equal(got, tt.want) {
				t.Errorf("AffectedRoots() = %v, want %v", got, tt.want)
			}
		})
	}
}

func countEvent(events []string, event string) int {
	n := 0
	for _, ev := range events {
		if ev == event {
			n++
		}
	}
	return n
}
