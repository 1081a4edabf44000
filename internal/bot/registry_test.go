package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

// stubModule is a test double for Module
type stubModule struct {
	name          string
	commands      []*discordgo.ApplicationCommand
	handlers      map[string]InteractionHandler
	eventHandlers []EventHandler
	initErr       error
	shutErr       error
}

func (m *stubModule) Name() string                                   { return m.name }
func (m *stubModule) Commands() []*discordgo.ApplicationCommand      { return m.commands }
func (m *stubModule) CommandHandlers() map[string]InteractionHandler { return m.handlers }
func (m *stubModule) EventHandlers() []EventHandler                  { return m.eventHandlers }
func (m *stubModule) Init(deps ModuleDependencies) error             { return m.initErr }
func (m *stubModule) Shutdown() error                                { return m.shutErr }

func TestRegistry_Add(t *testing.T) {
	tests := []struct {
		name      string
		modules   []string
		wantNames []string
		wantErrs  int
	}{
		{
			name:      "single module",
			modules:   []string{"music_player"},
			wantNames: []string{"music_player"},
		},
		{
			name:      "keeps registration order",
			modules:   []string{"b", "a", "c"},
			wantNames: []string{"b", "a", "c"},
		},
		{
			name:      "rejects duplicate names",
			modules:   []string{"a", "a", "b"},
			wantNames: []string{"a", "b"},
			wantErrs:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()

			errs := 0
			for _, name := range tt.modules {
				if err := reg.Add(&stubModule{name: name}); err != nil {
					errs++
				}
			}

			if errs != tt.wantErrs {
				t.Errorf("expected %d errors, got %d", tt.wantErrs, errs)
			}
			modules := reg.Modules()
			if len(modules) != len(tt.wantNames) {
				t.Fatalf("expected %d modules, got %d", len(tt.wantNames), len(modules))
			}
			for i, want := range tt.wantNames {
				if modules[i].Name() != want {
					t.Errorf("expected module %d to be %q, got %q", i, want, modules[i].Name())
				}
			}
		})
	}
}

func TestRegistry_ModulesReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Add(&stubModule{name: "module-1"})

	modules := reg.Modules()

	// Register another module after getting snapshot
	_ = reg.Add(&stubModule{name: "module-2"})

	// Original snapshot should not be affected
	if len(modules) != 1 {
		t.Errorf("expected snapshot to have 1 module, got %d", len(modules))
	}
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobalRegistry()
	t.Cleanup(ResetGlobalRegistry)

	Register(&stubModule{name: "global-test"})

	modules := Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name() != "global-test" {
		t.Errorf("expected module name %q, got %q", "global-test", modules[0].Name())
	}
}

func TestGlobalRegistry_PanicsOnDuplicate(t *testing.T) {
	ResetGlobalRegistry()
	t.Cleanup(ResetGlobalRegistry)

	Register(&stubModule{name: "dup"})

	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate module name")
		}
	}()
	Register(&stubModule{name: "dup"})
}
