package bot

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

func TestNewBot(t *testing.T) {
	cfg := &Config{
		DiscordToken: "test-token",
	}

	b := NewBot(cfg)

	if b == nil {
		t.Fatal("expected bot to be created, got nil")
	}
	if b.config != cfg {
		t.Error("expected config to be stored")
	}
}

func TestBot_LoadModules_InitializesModules(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	initCalled := false
	trackingMod := &trackingStubModule{
		stubModule: stubModule{name: "tracking"},
		initCalled: &initCalled,
	}
	b.modules = []Module{trackingMod}

	err := b.initModules(snowflake.ID(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !initCalled {
		t.Error("expected Init to be called")
	}
}

func TestBot_LoadModules_ReturnsInitError(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	expectedErr := errors.New("init failed")
	mod := &stubModule{
		name:    "failing",
		initErr: expectedErr,
	}
	b.modules = []Module{mod}

	err := b.initModules(snowflake.ID(1))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestBot_BuildHandlerMap(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return nil
	}

	mod := &stubModule{
		name: "test",
		handlers: map[string]InteractionHandler{
			"ping": handler,
		},
	}
	b.modules = []Module{mod}

	b.buildHandlerMap()

	if _, ok := b.handlers["ping"]; !ok {
		t.Error("expected ping handler to be registered")
	}
}

func TestBot_BuildHandlerMap_MultipleModules(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	handler1 := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return nil
	}
	handler2 := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return nil
	}

	mod1 := &stubModule{
		name: "mod1",
		handlers: map[string]InteractionHandler{
			"cmd1": handler1,
		},
	}
	mod2 := &stubModule{
		name: "mod2",
		handlers: map[string]InteractionHandler{
			"cmd2": handler2,
		},
	}
	b.modules = []Module{mod1, mod2}

	b.buildHandlerMap()

	if len(b.handlers) != 2 {
		t.Errorf("expected 2 handlers, got %d", len(b.handlers))
	}
}

func TestBot_CollectCommands(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	cmd := &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Ping command",
	}

	mod := &stubModule{
		name:     "test",
		commands: []*discordgo.ApplicationCommand{cmd},
	}
	b.modules = []Module{mod}

	commands := b.collectCommands()

	if len(commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(commands))
	}
	if commands[0].Name != "ping" {
		t.Errorf("expected command name %q, got %q", "ping", commands[0].Name)
	}
}

// trackingStubModule is a stub that tracks if Init was called
type trackingStubModule struct {
	stubModule
	initCalled *bool
	deps       ModuleDependencies
}

func (m *trackingStubModule) Init(deps ModuleDependencies) error {
	*m.initCalled = true
	m.deps = deps
	return m.stubModule.Init(deps)
}

func TestBot_InitModules_PassesDependencies(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	mod := &trackingStubModule{stubModule: stubModule{name: "deps"}, initCalled: new(bool)}
	b.modules = []Module{mod}

	if err := b.initModules(snowflake.ID(42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mod.deps.BotID != snowflake.ID(42) {
		t.Errorf("expected bot ID 42, got %v", mod.deps.BotID)
	}
	if mod.deps.Registry == nil {
		t.Error("expected registry to be provided")
	}
	if mod.deps.Router == nil {
		t.Error("expected router to be provided")
	}
}

func TestBot_LoadModuleConfigs(t *testing.T) {
	tests := []struct {
		name    string
		loadErr error
		wantErr bool
	}{
		{name: "success", loadErr: nil, wantErr: false},
		{name: "failure", loadErr: errors.New("missing LAVALINK_ADDRESS"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBot(&Config{DiscordToken: "test-token"})
			configurable := &configurableStubModule{
				stubModule: stubModule{name: "configurable"},
				loadErr:    tt.loadErr,
			}
			b.modules = []Module{&stubModule{name: "plain"}, configurable}

			err := b.loadModuleConfigs()
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr && !errors.Is(err, tt.loadErr) {
				t.Errorf("expected error to wrap %v, got %v", tt.loadErr, err)
			}
			if !configurable.loaded {
				t.Error("expected LoadConfig to be called")
			}
		})
	}
}

func TestBot_Router(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	tests := []struct {
		path     string
		wantBody string
	}{
		{path: "/healthz", wantBody: "ok"},
		{path: "/metrics", wantBody: "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			b.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %q", tt.wantBody)
			}
		})
	}
}

func TestBot_Stop_WithoutStart(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})
	b.modules = []Module{&stubModule{name: "test", shutErr: errors.New("ignored")}}

	if err := b.Stop(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBot_Dispatch(t *testing.T) {
	failing := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return errors.New("boom")
	}
	deferring := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return r.Defer()
	}

	tests := []struct {
		name         string
		command      string
		wantColor    int
		wantTitle    string
		wantDeferred bool
	}{
		{name: "unknown command", command: "missing", wantColor: colorYellow, wantTitle: "Unknown Command"},
		{name: "handler error", command: "fail", wantColor: colorRed, wantTitle: "Error"},
		{name: "deferred handler", command: "defer", wantDeferred: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBot(&Config{DiscordToken: "test-token"})
			b.handlers["fail"] = failing
			b.handlers["defer"] = deferring

			responder := &MockResponder{}
			b.dispatch(nil, commandInteraction(tt.command), responder)

			if responder.Deferred != tt.wantDeferred {
				t.Errorf("expected deferred %v, got %v", tt.wantDeferred, responder.Deferred)
			}
			if tt.wantTitle == "" {
				if responder.LastResponse != nil {
					t.Errorf("expected no response, got %+v", responder.LastResponse)
				}
				return
			}
			if responder.LastResponse == nil {
				t.Fatal("expected a response")
			}
			embed := responder.LastResponse.Data.Embeds[0]
			if embed.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, embed.Title)
			}
			if embed.Color != tt.wantColor {
				t.Errorf("expected color %x, got %x", tt.wantColor, embed.Color)
			}
		})
	}
}

func commandInteraction(name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Name: name},
		},
	}
}

// configurableStubModule is a stub that records LoadConfig calls
type configurableStubModule struct {
	stubModule
	loadErr error
	loaded  bool
}

func (m *configurableStubModule) LoadConfig() error {
	m.loaded = true
	return m.loadErr
}

// autocompleteStubModule offers choices for one command.
type autocompleteStubModule struct {
	stubModule
	choices map[string]AutocompleteHandler
}

func (m *autocompleteStubModule) AutocompleteHandlers() map[string]AutocompleteHandler {
	return m.choices
}

func TestBot_DispatchAutocomplete(t *testing.T) {
	song := &discordgo.ApplicationCommandOptionChoice{Name: "song", Value: "song"}
	mod := &autocompleteStubModule{
		stubModule: stubModule{name: "music"},
		choices: map[string]AutocompleteHandler{
			"play": func(*discordgo.Session, *discordgo.InteractionCreate) []*discordgo.ApplicationCommandOptionChoice {
				return []*discordgo.ApplicationCommandOptionChoice{song}
			},
			"seek": func(*discordgo.Session, *discordgo.InteractionCreate) []*discordgo.ApplicationCommandOptionChoice {
				return nil
			},
		},
	}

	tests := []struct {
		name        string
		command     string
		wantChoices int
	}{
		{name: "handler choices", command: "play", wantChoices: 1},
		{name: "nil choices become empty", command: "seek", wantChoices: 0},
		{name: "command without handler", command: "skip", wantChoices: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBot(&Config{DiscordToken: "test-token"})
			b.modules = []Module{mod}
			b.buildHandlerMap()

			i := commandInteraction(tt.command)
			i.Type = discordgo.InteractionApplicationCommandAutocomplete

			responder := &MockResponder{}
			b.dispatchAutocomplete(nil, i, responder)

			resp := responder.LastResponse
			if resp == nil {
				t.Fatal("expected a response")
			}
			if resp.Type != discordgo.InteractionApplicationCommandAutocompleteResult {
				t.Errorf("expected autocomplete result, got %v", resp.Type)
			}
			if resp.Data.Choices == nil {
				t.Fatal("expected a non-nil choice list")
			}
			if len(resp.Data.Choices) != tt.wantChoices {
				t.Errorf("expected %d choices, got %d", tt.wantChoices, len(resp.Data.Choices))
			}
		})
	}
}

// orderedStubModule appends its name to a shared log on shutdown.
type orderedStubModule struct {
	stubModule
	log *[]string
}

func (m *orderedStubModule) Shutdown() error {
	*m.log = append(*m.log, m.name)
	return nil
}

func TestBot_Stop_ShutsDownInReverseOrder(t *testing.T) {
	var log []string
	b := NewBot(&Config{DiscordToken: "test-token"})
	b.modules = []Module{
		&orderedStubModule{stubModule: stubModule{name: "first"}, log: &log},
		&orderedStubModule{stubModule: stubModule{name: "second"}, log: &log},
	}

	if err := b.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(log, ",") != "second,first" {
		t.Errorf("expected shutdown order second,first, got %v", log)
	}
}
