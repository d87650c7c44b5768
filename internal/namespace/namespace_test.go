// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"errors"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitcode"
)

type (
	// countingPipeline records Apply calls and tags every class it sees.
	countingPipeline struct {
		calls atomic.Int32
		err   error
	}

	// countingSource is an empty source that counts lookups.
	countingSource struct {
		StaticSource
		reads *atomic.Int32
	}
)

func (s *countingSource) ReadFile(name string) ([]byte, error) {
	s.reads.Add(1)
	return s.StaticSource.ReadFile(name)
}

func (p *countingPipeline) Apply(id string, raw []byte) ([]byte, bool, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, false, p.err
	}
	cls, err := unitcode.DecodeClass(raw)
	if err != nil {
		return nil, false, err
	}
	if cls.Attributes == nil {
		cls.Attributes = map[string]string{}
	}
	cls.Attributes["seen"] = "yes"
	data, err := unitcode.EncodeClass(cls)
	return data, true, err
}

func sourceWith(t *testing.T, ids ...string) StaticSource {
	t.Helper()
	src := StaticSource{}
	for _, id := range ids {
		if err := src.AddClass(&unitcode.Class{Name: id, Access: unitcode.Public}); err != nil {
			t.Fatal(err)
		}
	}
	return src
}

func newTestManager(t *testing.T, platform StaticSource, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{
		WithLogger(log.New(io.Discard)),
		WithProtectedPrefixes(unitcode.Prefixes{"modhost."}),
	}, opts...)
	return NewManager(NewRoot(platform), opts...)
}

func TestCreate_Parenting(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)
	base, err := m.Create("base", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ps := base.Parents(); len(ps) != 1 || !ps[0].IsRoot() {
		t.Errorf("base parents = %v", parentNames(ps))
	}

	util, _ := m.Create("util", nil, nil)
	app, err := m.Create("app", nil, []string{"util", "gone", "base"})
	if err != nil {
		t.Fatal(err)
	}
	if got := parentNames(app.Parents()); !slices.Equal(got, []string{"util", "base"}) {
		t.Errorf("app parents = %v, want live dependencies in order", got)
	}
	if !slices.Contains(util.Children(), app) || !slices.Contains(base.Children(), app) {
		t.Error("app not registered as child of its parents")
	}
	if !slices.Equal(m.Names(), []string{"app", "base", "util"}) {
		t.Errorf("Names() = %v", m.Names())
	}
}

func TestCreate_Errors(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)
	if _, err := m.Create("orphan", nil, []string{"missing"}); !errors.Is(err, ErrNoLiveParent) {
		t.Errorf("err = %v, want ErrNoLiveParent", err)
	}
	if _, ok := m.Get("orphan"); ok {
		t.Error("failed namespace was registered")
	}
	if _, err := m.Create("dup", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create("dup", nil, nil); !errors.Is(err, ErrNamespaceExists) {
		t.Errorf("err = %v, want ErrNamespaceExists", err)
	}
}

func TestResolve_OwnThenParentsInOrder(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, sourceWith(t, "shared.Thing"))
	_, _ = m.Create("left", sourceWith(t, "left.Only", "dup.Thing"), nil)
	_, _ = m.Create("right", sourceWith(t, "right.Only", "dup.Thing"), nil)
	app, _ := m.Create("app", sourceWith(t, "app.Entry"), []string{"left", "right"})

	tests := []struct {
		id   string
		from string
	}{
		{"app.Entry", "app"},
		{"left.Only", "left"},
		{"right.Only", "right"},
		{"dup.Thing", "left"},
		{"shared.Thing", RootName},
	}
	for _, tt := range tests {
		sym, err := app.Resolve(tt.id)
		if err != nil {
			t.Errorf("Resolve(%s) error = %v", tt.id, err)
			continue
		}
		if sym.Namespace != tt.from {
			t.Errorf("Resolve(%s) from %s, want %s", tt.id, sym.Namespace, tt.from)
		}
	}

	var nf *SymbolNotFoundError
	if _, err := app.Resolve("no.Such"); !errors.As(err, &nf) || nf.Namespace != "app" {
		t.Errorf("miss err = %v", err)
	}
}

func TestResolve_DiamondVisitsEachNamespaceOnce(t *testing.T) {
	t.Parallel()

	reads := &atomic.Int32{}
	counted := func() Source { return &countingSource{reads: reads} }

	m := NewManager(NewRoot(counted()), WithLogger(log.New(io.Discard)))
	_, _ = m.Create("base", counted(), nil)
	_, _ = m.Create("left", counted(), []string{"base"})
	_, _ = m.Create("right", counted(), []string{"base"})
	top, _ := m.Create("top", counted(), []string{"left", "right"})

	if _, err := top.Resolve("no.Such"); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("err = %v", err)
	}
	// top, left, base, root, right: five namespaces, each read once.
	if got := reads.Load(); got != 5 {
		t.Errorf("source reads = %d, want 5", got)
	}
}

func TestResolve_ProtectedPrefixGoesToRoot(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, sourceWith(t, "modhost.api.Unit"))
	// A unit shipping its own copy of a protected class must not shadow it.
	unit, _ := m.Create("sneaky", sourceWith(t, "modhost.api.Unit", "modhost.api.Extra"), nil)

	sym, err := unit.Resolve("modhost.api.Unit")
	if err != nil {
		t.Fatal(err)
	}
	if sym.Namespace != RootName {
		t.Errorf("protected class resolved from %s", sym.Namespace)
	}
	if _, err := unit.Resolve("modhost.api.Extra"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("unit-provided protected class must be invisible, err = %v", err)
	}
}

func TestResolve_MaterializesOnceThroughPipeline(t *testing.T) {
	t.Parallel()

	pl := &countingPipeline{}
	m := newTestManager(t, sourceWith(t, "platform.Thing"), WithPipeline(pl))
	unit, _ := m.Create("unit-a", sourceWith(t, "unit.Entry"), nil)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			cls, err := unit.ResolveClass("unit.Entry")
			if err != nil {
				t.Errorf("ResolveClass() error = %v", err)
				return
			}
			if cls.Attributes["seen"] != "yes" {
				t.Errorf("class was not materialized through the pipeline")
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := pl.calls.Load(); got != 1 {
		t.Errorf("pipeline applied %d times, want 1", got)
	}
	first, _ := unit.Resolve("unit.Entry")
	again, _ := unit.Resolve("unit.Entry")
	if first != again || !first.Transformed {
		t.Error("resident symbol must be cached and marked transformed")
	}

	before := pl.calls.Load()
	if _, err := unit.Resolve("platform.Thing"); err != nil {
		t.Fatal(err)
	}
	if pl.calls.Load() != before {
		t.Error("root classes must not pass through the pipeline")
	}
	if !slices.Equal(unit.Resident(), []string{"unit.Entry"}) {
		t.Errorf("Resident() = %v", unit.Resident())
	}
}

func TestResolve_ConcurrentFirstLookupKeepsOneShotTransform(t *testing.T) {
	t.Parallel()

	for round := range 50 {
		pl := transform.New(transform.WithLogger(log.New(io.Discard)))
		err := pl.Add(transform.Entry{
			ID:     "stamp",
			Owner:  "a",
			Target: transform.Exact("a.A"),
			Transform: func(cls *unitcode.Class) (bool, bool, error) {
				if cls.Attributes == nil {
					cls.Attributes = map[string]string{}
				}
				cls.Attributes["stamped"] = "yes"
				return true, false, nil
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		m := newTestManager(t, nil, WithPipeline(pl))
		unit, _ := m.Create("a", sourceWith(t, "a.A"), nil)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				cls, err := unit.ResolveClass("a.A")
				if err != nil {
					t.Errorf("round %d: ResolveClass() error = %v", round, err)
					return
				}
				if cls.Attributes["stamped"] != "yes" {
					t.Errorf("round %d: resolved a.A without the one-shot transform", round)
				}
			}()
		}
		close(start)
		wg.Wait()

		if got := len(pl.Entries()); got != 0 {
			t.Errorf("round %d: %d entries left, want the one-shot entry removed", round, got)
		}
	}
}

func TestManager_CreateRemoveDuringResolve(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, sourceWith(t, "platform.Thing"))
	base, _ := m.Create("base", sourceWith(t, "base.Shared"), nil)
	app, _ := m.Create("app", sourceWith(t, "app.Entry"), []string{"base"})

	stop := make(chan struct{})
	var churn sync.WaitGroup
	churn.Add(1)
	go func() {
		defer churn.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := m.Create("mid", StaticSource{}, []string{"base"}); err != nil {
				t.Errorf("Create(mid) error = %v", err)
				return
			}
			if err := m.Remove("mid"); err != nil {
				t.Errorf("Remove(mid) error = %v", err)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				for _, id := range []string{"app.Entry", "base.Shared", "platform.Thing"} {
					if _, err := app.Resolve(id); err != nil {
						t.Errorf("Resolve(%s) error = %v", id, err)
						return
					}
				}
				var notFound *SymbolNotFoundError
				if _, err := app.Resolve("nowhere.Missing"); !errors.As(err, &notFound) {
					t.Errorf("Resolve(nowhere.Missing) error = %v", err)
					return
				}
				_, _, _ = base.FindResource("assets/none.png")
			}
		}()
	}
	wg.Wait()
	close(stop)
	churn.Wait()

	if _, ok := m.Get("mid"); ok {
		t.Error("mid still registered after churn")
	}
	if got := parentNames(base.Children()); !slices.Equal(got, []string{"app"}) {
		t.Errorf("base children = %v, want [app]", got)
	}
}

func TestResolve_PipelineErrorSurfaces(t *testing.T) {
	t.Parallel()

	boom := errors.New("transformer exploded")
	m := newTestManager(t, nil, WithPipeline(&countingPipeline{err: boom}))
	unit, _ := m.Create("unit-a", sourceWith(t, "unit.Entry"), nil)

	if _, err := unit.Resolve("unit.Entry"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want pipeline error", err)
	}
	if len(unit.Resident()) != 0 {
		t.Error("failed materialization must not be cached")
	}
}

func TestFindResource_SearchesDescendants(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, StaticSource{"root.txt": []byte("root")})
	_, _ = m.Create("base", StaticSource{}, nil)
	_, _ = m.Create("mid", StaticSource{}, []string{"base"})
	_, _ = m.Create("leaf", StaticSource{"assets/icon.png": []byte("png")}, []string{"mid"})

	base, _ := m.Get("base")
	data, holder, err := base.FindResource("assets/icon.png")
	if err != nil {
		t.Fatalf("FindResource() error = %v", err)
	}
	if string(data) != "png" || holder.Name() != "leaf" {
		t.Errorf("found %q in %s", data, holder.Name())
	}

	if _, _, err := base.FindResource("root.txt"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("resource lookup must not climb to parents, err = %v", err)
	}
	if _, holder, err := m.Root().FindResource("assets/icon.png"); err != nil || holder.Name() != "leaf" {
		t.Errorf("root search = %v, %v", holder, err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)
	base, _ := m.Create("base", nil, nil)
	_, _ = m.Create("app", nil, []string{"base"})

	if err := m.Remove("app"); err != nil {
		t.Fatal(err)
	}
	if len(base.Children()) != 0 {
		t.Errorf("base children = %v", parentNames(base.Children()))
	}
	if _, ok := m.Get("app"); ok {
		t.Error("removed namespace still registered")
	}
	if err := m.Remove("app"); !errors.Is(err, ErrNamespaceNotFound) {
		t.Errorf("err = %v, want ErrNamespaceNotFound", err)
	}

	// The name is free again.
	if _, err := m.Create("app", nil, []string{"base"}); err != nil {
		t.Errorf("re-create error = %v", err)
	}
}
