package usecases

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

type mockQueueLifecycle struct {
	mu      sync.Mutex
	repo    *mockRepository
	inits   []snowflake.ID
	deinits []snowflake.ID
	initErr error
}

func (m *mockQueueLifecycle) View(guildID snowflake.ID, fn func(*domain.PlayerState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.repo.Get(guildID)
	if state == nil {
		return ErrNotConnected
	}
	fn(state)
	return nil
}

func (m *mockQueueLifecycle) InitQueue(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits = append(m.inits, guildID)
	return m.initErr
}

func (m *mockQueueLifecycle) DeInitQueue(_ context.Context, guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deinits = append(m.deinits, guildID)
}

func TestVoiceChannelService_Join(t *testing.T) {
	tests := []struct {
		name               string
		input              JoinInput
		setupRepo          func(*mockRepository)
		setupConnection    func(*mockVoiceConnection)
		setupVoice         func(*mockVoiceStateProvider)
		setupLifecycle     func(*mockQueueLifecycle)
		wantErr            error
		wantVoiceChannelID snowflake.ID
		wantInits          int
	}{
		{
			name: "join user's channel",
			input: JoinInput{
				GuildID:               testGuildID,
				UserID:                testUserID,
				NotificationChannelID: testTextChannel,
			},
			setupVoice: func(m *mockVoiceStateProvider) {
				m.channels[testUserID] = testVoiceChannel
			},
			wantVoiceChannelID: testVoiceChannel,
			wantInits:          1,
		},
		{
			name: "join specific channel",
			input: JoinInput{
				GuildID:               testGuildID,
				UserID:                testUserID,
				NotificationChannelID: testTextChannel,
				VoiceChannelID:        testVoiceChannel,
			},
			wantVoiceChannelID: testVoiceChannel,
			wantInits:          1,
		},
		{
			name: "restore failure does not fail the join",
			input: JoinInput{
				GuildID:               testGuildID,
				NotificationChannelID: testTextChannel,
				VoiceChannelID:        testVoiceChannel,
			},
			setupLifecycle: func(m *mockQueueLifecycle) {
				m.initErr = errors.New("db down")
			},
			wantVoiceChannelID: testVoiceChannel,
			wantInits:          1,
		},
		{
			name: "user not in voice",
			input: JoinInput{
				GuildID:               testGuildID,
				UserID:                testUserID,
				NotificationChannelID: testTextChannel,
			},
			wantErr: ErrUserNotInVoice,
		},
		{
			name: "already in the same channel",
			input: JoinInput{
				GuildID:               testGuildID,
				NotificationChannelID: testOtherChannelID,
				VoiceChannelID:        testVoiceChannel,
			},
			setupRepo: func(m *mockRepository) {
				m.createConnectedState(testGuildID, testVoiceChannel, testTextChannel)
			},
			wantVoiceChannelID: testVoiceChannel,
		},
		{
			name: "moving channels keeps the board",
			input: JoinInput{
				GuildID:               testGuildID,
				NotificationChannelID: testTextChannel,
				VoiceChannelID:        testOtherChannelID,
			},
			setupRepo: func(m *mockRepository) {
				m.createConnectedState(testGuildID, testVoiceChannel, testTextChannel)
			},
			wantVoiceChannelID: testOtherChannelID,
		},
		{
			name: "connection error",
			input: JoinInput{
				GuildID:        testGuildID,
				VoiceChannelID: testVoiceChannel,
			},
			setupConnection: func(m *mockVoiceConnection) {
				m.joinErr = errors.New("join failed")
			},
			wantErr: errors.New("join failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			connection := &mockVoiceConnection{}
			voice := &mockVoiceStateProvider{channels: make(map[snowflake.ID]snowflake.ID)}
			lifecycle := &mockQueueLifecycle{repo: repo}
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}
			if tt.setupConnection != nil {
				tt.setupConnection(connection)
			}
			if tt.setupVoice != nil {
				tt.setupVoice(voice)
			}
			if tt.setupLifecycle != nil {
				tt.setupLifecycle(lifecycle)
			}

			service := NewVoiceChannelService(
				repo, connection, voice, lifecycle, &mockEventPublisher{},
				domain.WithMaxQueues(5),
			)
			out, err := service.Join(context.Background(), tt.input)

			if tt.wantErr != nil {
				if err == nil || err.Error() != tt.wantErr.Error() {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.VoiceChannelID != tt.wantVoiceChannelID {
				t.Errorf("voice channel = %d, want %d", out.VoiceChannelID, tt.wantVoiceChannelID)
			}

			state := repo.Get(testGuildID)
			if state == nil {
				t.Fatal("expected player state to be saved")
			}
			if state.GetVoiceChannelID() != tt.wantVoiceChannelID {
				t.Errorf("state voice channel = %d", state.GetVoiceChannelID())
			}
			if state.GetNotificationChannelID() != tt.input.NotificationChannelID {
				t.Errorf("state notification channel = %d", state.GetNotificationChannelID())
			}
			if len(lifecycle.inits) != tt.wantInits {
				t.Errorf("inits = %d, want %d", len(lifecycle.inits), tt.wantInits)
			}
		})
	}
}

func TestVoiceChannelService_Leave(t *testing.T) {
	t.Run("flushes and deletes the state", func(t *testing.T) {
		repo := newMockRepository()
		state := repo.createConnectedState(testGuildID, testVoiceChannel, testTextChannel)
		state.SetNowPlayingMessage(testTextChannel, snowflake.ID(77))
		lifecycle := &mockQueueLifecycle{repo: repo}
		publisher := &mockEventPublisher{}
		service := NewVoiceChannelService(repo, &mockVoiceConnection{}, nil, lifecycle, publisher)

		if err := service.Leave(context.Background(), LeaveInput{GuildID: testGuildID}); err != nil {
			t.Fatalf("Leave() error = %v", err)
		}

		if repo.Get(testGuildID) != nil {
			t.Error("expected state to be deleted")
		}
		if len(lifecycle.deinits) != 1 {
			t.Errorf("expected 1 deinit, got %d", len(lifecycle.deinits))
		}
		if len(publisher.playbackFinished) != 1 || *publisher.playbackFinished[0].LastMessageID != 77 {
			t.Errorf("expected now playing message cleanup, got %+v", publisher.playbackFinished)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		repo := newMockRepository()
		service := NewVoiceChannelService(
			repo, &mockVoiceConnection{}, nil, &mockQueueLifecycle{repo: repo}, nil,
		)

		err := service.Leave(context.Background(), LeaveInput{GuildID: testGuildID})
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("connection error keeps the state", func(t *testing.T) {
		repo := newMockRepository()
		repo.createConnectedState(testGuildID, testVoiceChannel, testTextChannel)
		lifecycle := &mockQueueLifecycle{repo: repo}
		service := NewVoiceChannelService(
			repo, &mockVoiceConnection{leaveErr: errors.New("leave failed")}, nil, lifecycle, nil,
		)

		if err := service.Leave(context.Background(), LeaveInput{GuildID: testGuildID}); err == nil {
			t.Fatal("expected error")
		}
		if repo.Get(testGuildID) == nil || len(lifecycle.deinits) != 0 {
			t.Error("expected state to be kept")
		}
	})
}

func TestVoiceChannelService_HandleBotVoiceStateChange(t *testing.T) {
	t.Run("disconnect tears down", func(t *testing.T) {
		repo := newMockRepository()
		repo.createConnectedState(testGuildID, testVoiceChannel, testTextChannel)
		lifecycle := &mockQueueLifecycle{repo: repo}
		service := NewVoiceChannelService(repo, nil, nil, lifecycle, nil)

		service.HandleBotVoiceStateChange(context.Background(), BotVoiceStateChangeInput{GuildID: testGuildID})

		if repo.Get(testGuildID) != nil || len(lifecycle.deinits) != 1 {
			t.Error("expected state to be flushed and deleted")
		}
	})

	t.Run("move updates the channel", func(t *testing.T) {
		repo := newMockRepository()
		state := repo.createConnectedState(testGuildID, testVoiceChannel, testTextChannel)
		service := NewVoiceChannelService(repo, nil, nil, &mockQueueLifecycle{repo: repo}, nil)
		moved := testOtherChannelID

		service.HandleBotVoiceStateChange(context.Background(), BotVoiceStateChangeInput{
			GuildID:      testGuildID,
			NewChannelID: &moved,
		})

		if state.GetVoiceChannelID() != moved {
			t.Errorf("voice channel = %d, want %d", state.GetVoiceChannelID(), moved)
		}
	})
}

func TestVoiceChannelService_RestoredBoard(t *testing.T) {
	// join drops the fixture's state and joins again, restoring "saved" at index 2.
	join := func(t *testing.T) (*playbackFixture, *VoiceChannelService) {
		t.Helper()
		f := newPlaybackFixture(PlaybackConfig{PersistentQueue: true})
		f.repo.Delete(testGuildID)
		f.queues.queues[testGuildID] = []*domain.MultiQueue{
			domain.NewMultiQueue("q1", "saved", mockTracks("a", "b", "c"), 2),
		}
		voice := NewVoiceChannelService(
			f.repo, &mockVoiceConnection{}, nil, f.service, f.publisher,
		)
		_, err := voice.Join(context.Background(), JoinInput{
			GuildID:               testGuildID,
			NotificationChannelID: testTextChannel,
			VoiceChannelID:        testVoiceChannel,
		})
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		f.state = f.repo.Get(testGuildID)
		return f, voice
	}

	t.Run("enqueue starts the new item after the saved cursor", func(t *testing.T) {
		f, _ := join(t)

		out, err := f.service.EnqueueEnd(context.Background(), EnqueueInput{
			GuildID: testGuildID,
			Tracks:  mockTracks("x"),
		})
		if err != nil {
			t.Fatalf("EnqueueEnd() error = %v", err)
		}
		if out.Position != 3 || out.Started == nil || out.Started.ID != "x" {
			t.Errorf("expected x started at 3, got position %d started %v", out.Position, out.Started)
		}
	})

	t.Run("shuffle pins the saved item", func(t *testing.T) {
		f, _ := join(t)

		if _, err := f.service.TriggerShuffle(context.Background(), testGuildID); err != nil {
			t.Fatalf("TriggerShuffle() error = %v", err)
		}
		if first := f.state.Board().GetCurrentQueue().ShuffledOrder()[0].ID; first != "c" {
			t.Errorf("expected c pinned first, got %s", first)
		}
	})

	t.Run("leave stores the saved position", func(t *testing.T) {
		f, voice := join(t)

		if err := voice.Leave(context.Background(), LeaveInput{GuildID: testGuildID}); err != nil {
			t.Fatalf("Leave() error = %v", err)
		}
		if err := f.service.Close(context.Background()); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		stored := f.queues.stored(testGuildID)
		if len(stored) != 1 || stored[0].Position() != 2 {
			t.Fatalf("expected the queue stored at position 2, got %v", stored)
		}
		if got := trackIDs(stored[0].UnshuffledOrder()); !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Errorf("stored items = %v", got)
		}
	})
}

func TestVoiceChannelService_ConcurrentWithPlayback(t *testing.T) {
	f := newPlaybackFixture(PlaybackConfig{})
	voice := NewVoiceChannelService(
		f.repo, &mockVoiceConnection{}, nil, f.service, f.publisher,
	)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := range 10 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := f.service.PlayQueue(ctx, PlayQueueInput{
				GuildID: testGuildID,
				Title:   "test",
				Tracks:  mockTracks("a", "b"),
			})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			notification := testTextChannel
			if i%2 == 0 {
				notification = testOtherChannelID
			}
			_, err := voice.Join(ctx, JoinInput{
				GuildID:               testGuildID,
				NotificationChannelID: notification,
				VoiceChannelID:        testVoiceChannel,
			})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			moved := testVoiceChannel
			voice.HandleBotVoiceStateChange(ctx, BotVoiceStateChangeInput{
				GuildID:      testGuildID,
				NewChannelID: &moved,
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if f.state.GetVoiceChannelID() != testVoiceChannel {
		t.Errorf("voice channel = %d", f.state.GetVoiceChannelID())
	}
}
