package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/dgallion1/modsearch/internal/platform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote serves canned definitions. failures lists how many times a
// module fails with errs before succeeding.
type fakeRemote struct {
	mu       sync.Mutex
	authed   bool
	authErr  error
	modules  []platform.Module
	listErr  error
	defs     map[string]string
	errs     map[string]error
	failures map[string]int
	calls    map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		defs:     map[string]string{},
		errs:     map[string]error{},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
}

func (f *fakeRemote) add(id, name, components string) {
	f.modules = append(f.modules, platform.Module{ID: id, Name: name})
	f.defs[id] = components
}

func (f *fakeRemote) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return f.authErr
	}
	f.authed = true
	return nil
}

func (f *fakeRemote) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authed
}

func (f *fakeRemote) ListModules(ctx context.Context, applicationID string) ([]platform.Module, error) {
	if !f.Authenticated() {
		return nil, platform.ErrNotAuthenticated
	}
	return f.modules, f.listErr
}

func (f *fakeRemote) GetDefinition(ctx context.Context, moduleID string) (*platform.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[moduleID]++
	if err, ok := f.errs[moduleID]; ok && f.calls[moduleID] <= f.failures[moduleID] {
		return nil, err
	}
	comps, ok := f.defs[moduleID]
	if !ok {
		return nil, errors.New("status 404: not found")
	}
	var name string
	for _, m := range f.modules {
		if m.ID == moduleID {
			name = m.Name
		}
	}
	return &platform.Definition{ID: moduleID, Name: name, Components: json.RawMessage(comps)}, nil
}

func (f *fakeRemote) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}
