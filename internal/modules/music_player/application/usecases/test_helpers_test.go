package usecases

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

func mockTrack(id string) domain.Track {
	return domain.Track{
		ID:       domain.TrackID(id),
		Title:    "Track " + id,
		Artists:  []domain.ArtistRef{{Name: "Artist"}},
		Duration: 180,
	}
}

func mockTracks(ids ...string) []domain.Track {
	tracks := make([]domain.Track, len(ids))
	for i, id := range ids {
		tracks[i] = mockTrack(id)
	}
	return tracks
}

func trackIDs(tracks []domain.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = string(t.ID)
	}
	return ids
}

// reverseShuffle is a deterministic permutation for board shuffles.
func reverseShuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

type mockRepository struct {
	mu      sync.Mutex
	states  map[snowflake.ID]*domain.PlayerState
	deleted []snowflake.ID
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		states: make(map[snowflake.ID]*domain.PlayerState),
	}
}

func (m *mockRepository) Get(guildID snowflake.ID) *domain.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[guildID]
}

func (m *mockRepository) Save(state *domain.PlayerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.GetGuildID()] = state
}

func (m *mockRepository) Delete(guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, guildID)
	delete(m.states, guildID)
}

func (m *mockRepository) All() []*domain.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]*domain.PlayerState, 0, len(m.states))
	for _, s := range m.states {
		states = append(states, s)
	}
	return states
}

// createConnectedState creates a PlayerState with the given IDs and saves it to the mock repository.
func (m *mockRepository) createConnectedState(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
	opts ...domain.BoardOption,
) *domain.PlayerState {
	state := domain.NewPlayerState(guildID, voiceChannelID, notificationChannelID, opts...)
	m.Save(state)
	return state
}

type mockQueueRepository struct {
	mu        sync.Mutex
	queues    map[snowflake.ID][]*domain.MultiQueue
	positions map[snowflake.ID]time.Duration
	readErr   error
	writeErr  error
	writes    int
}

func newMockQueueRepository() *mockQueueRepository {
	return &mockQueueRepository{
		queues:    make(map[snowflake.ID][]*domain.MultiQueue),
		positions: make(map[snowflake.ID]time.Duration),
	}
}

func (m *mockQueueRepository) ReadQueues(_ context.Context, owner snowflake.ID) ([]*domain.MultiQueue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []*domain.MultiQueue
	for _, q := range m.queues[owner] {
		out = append(out, q.Clone())
	}
	return out, nil
}

func (m *mockQueueRepository) WriteQueues(_ context.Context, owner snowflake.ID, queues []*domain.MultiQueue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.queues[owner] = queues
	return nil
}

func (m *mockQueueRepository) ReadLastPosition(_ context.Context, owner snowflake.ID) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[owner], nil
}

func (m *mockQueueRepository) WriteLastPosition(_ context.Context, owner snowflake.ID, position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[owner] = position
	return nil
}

func (m *mockQueueRepository) stored(owner snowflake.ID) []*domain.MultiQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[owner]
}

type mockFormatRepository struct {
	mu      sync.Mutex
	formats map[domain.TrackID]domain.FormatRecord
	upserts int
}

func newMockFormatRepository() *mockFormatRepository {
	return &mockFormatRepository{formats: make(map[domain.TrackID]domain.FormatRecord)}
}

func (m *mockFormatRepository) ReadFormat(_ context.Context, id domain.TrackID) (*domain.FormatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.formats[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (m *mockFormatRepository) UpsertFormat(_ context.Context, format domain.FormatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.formats[format.TrackID] = format
	return nil
}

type mockSongRepository struct {
	mu        sync.Mutex
	songs     map[domain.TrackID]domain.Track
	related   map[domain.TrackID][]domain.Track
	local     []domain.Track
	durations map[domain.TrackID]int
	getErr    error
}

func newMockSongRepository(songs ...domain.Track) *mockSongRepository {
	m := &mockSongRepository{
		songs:     make(map[domain.TrackID]domain.Track),
		related:   make(map[domain.TrackID][]domain.Track),
		durations: make(map[domain.TrackID]int),
	}
	for _, s := range songs {
		m.songs[s.ID] = s
		if s.LocalPath != "" {
			m.local = append(m.local, s)
		}
	}
	return m
}

func (m *mockSongRepository) GetSong(_ context.Context, id domain.TrackID) (*domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if s, ok := m.songs[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *mockSongRepository) InsertSongs(_ context.Context, tracks []domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tracks {
		if _, ok := m.songs[t.ID]; !ok {
			m.songs[t.ID] = t
		}
	}
	return nil
}

func (m *mockSongRepository) UpdateDuration(_ context.Context, id domain.TrackID, seconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[id] = seconds
	if s, ok := m.songs[id]; ok {
		m.songs[id] = s.WithDuration(seconds)
	}
	return nil
}

func (m *mockSongRepository) HasRelatedSongs(_ context.Context, id domain.TrackID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.related[id]) > 0, nil
}

func (m *mockSongRepository) InsertRelatedSongs(_ context.Context, id domain.TrackID, related []domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.related[id] = append(m.related[id], related...)
	return nil
}

func (m *mockSongRepository) ListLocalSongs(_ context.Context) ([]domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local, nil
}

func (m *mockSongRepository) MarkDownloaded(_ context.Context, id domain.TrackID, downloaded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.songs[id]; ok {
		s.Downloaded = downloaded
		m.songs[id] = s
	}
	return nil
}

func (m *mockSongRepository) song(id domain.TrackID) (domain.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.songs[id]
	return s, ok
}

type mockRemoteResolver struct {
	mu           sync.Mutex
	playback     func(ctx context.Context, id domain.TrackID) (*ports.PlaybackData, error)
	related      []domain.Track
	relatedErr   error
	metadata     *domain.Track
	playbackHits int
	relatedHits  int
	knownFormats []*domain.FormatRecord
}

func (m *mockRemoteResolver) ResolvePlayback(
	ctx context.Context,
	id domain.TrackID,
	known *domain.FormatRecord,
	_ ports.AudioQuality,
) (*ports.PlaybackData, error) {
	m.mu.Lock()
	m.playbackHits++
	m.knownFormats = append(m.knownFormats, known)
	playback := m.playback
	m.mu.Unlock()

	if playback == nil {
		return &ports.PlaybackData{StreamURI: "https://stream.example/" + string(id)}, nil
	}
	return playback(ctx, id)
}

func (m *mockRemoteResolver) ResolveRelated(_ context.Context, _ domain.TrackID) ([]domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relatedHits++
	return m.related, m.relatedErr
}

func (m *mockRemoteResolver) ResolveMetadata(_ context.Context, _ domain.TrackID) (*domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata, nil
}

func (m *mockRemoteResolver) hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playbackHits
}

type mockByteCache struct {
	data map[domain.TrackID][]byte
}

func (m *mockByteCache) IsCached(_ context.Context, id domain.TrackID, offset, length int64) bool {
	data, ok := m.data[id]
	return ok && offset+length <= int64(len(data))
}

func (m *mockByteCache) Size(_ context.Context, id domain.TrackID) (int64, error) {
	data, ok := m.data[id]
	if !ok {
		return 0, ports.ErrNotCached
	}
	return int64(len(data)), nil
}

func (m *mockByteCache) ReadRange(_ context.Context, id domain.TrackID, offset, length int64) ([]byte, error) {
	data, ok := m.data[id]
	if !ok {
		return nil, ports.ErrNotCached
	}
	end := min(offset+length, int64(len(data)))
	return bytes.Clone(data[offset:end]), nil
}

func (m *mockByteCache) Put(_ context.Context, id domain.TrackID, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.data[id] = data
	return nil
}

type mockResolutionObserver struct {
	mu       sync.Mutex
	served   []ports.SourceKind
	failures []string
}

func (m *mockResolutionObserver) ResolutionServed(source ports.SourceKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.served = append(m.served, source)
}

func (m *mockResolutionObserver) ResolutionFailed(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, kind)
}

func (m *mockResolutionObserver) RemoteResolveDuration(time.Duration) {}

type mockPlaybackObserver struct {
	mu      sync.Mutex
	flushes []string
	actions []string
}

func (m *mockPlaybackObserver) QueueFlushed(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes = append(m.flushes, result)
}

func (m *mockPlaybackObserver) PlaybackErrorHandled(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
}

// mockSourceResolver resolves every track to a remote source unless it is listed in failures.
type mockSourceResolver struct {
	mu          sync.Mutex
	failures    map[domain.TrackID]error
	format      *domain.FormatRecord
	resolved    []domain.TrackID
	invalidated []domain.TrackID
}

func newMockSourceResolver() *mockSourceResolver {
	return &mockSourceResolver{failures: make(map[domain.TrackID]error)}
}

func (m *mockSourceResolver) Resolve(_ context.Context, request ResolveRequest) (*ports.StreamSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, request.TrackID)
	if err := m.failures[request.TrackID]; err != nil {
		return nil, err
	}
	return &ports.StreamSource{
		Kind:   ports.SourceRemote,
		URI:    "https://stream.example/" + string(request.TrackID),
		Length: ChunkLength,
		Format: m.format,
	}, nil
}

func (m *mockSourceResolver) Invalidate(id domain.TrackID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, id)
}

type mockAudioPlayer struct {
	mu        sync.Mutex
	plays     []ports.PlayRequest
	stops     int
	position  time.Duration
	playErr   error
	stopErr   error
	pauseErr  error
	resumeErr error
}

func (m *mockAudioPlayer) Play(_ context.Context, _ snowflake.ID, request ports.PlayRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.plays = append(m.plays, request)
	return nil
}

func (m *mockAudioPlayer) Stop(_ context.Context, _ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return m.stopErr
}

func (m *mockAudioPlayer) Pause(_ context.Context, _ snowflake.ID) error {
	return m.pauseErr
}

func (m *mockAudioPlayer) Resume(_ context.Context, _ snowflake.ID) error {
	return m.resumeErr
}

func (m *mockAudioPlayer) Seek(_ context.Context, _ snowflake.ID, position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = position
	return nil
}

func (m *mockAudioPlayer) Position(_ snowflake.ID) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *mockAudioPlayer) playedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.plays))
	for i, p := range m.plays {
		ids[i] = string(p.Track.ID)
	}
	return ids
}

type mockVoiceConnection struct {
	mu       sync.Mutex
	joinErr  error
	leaveErr error
	joined   []snowflake.ID
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, channelID)
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	return m.leaveErr
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) UserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	channel, ok := m.channels[userID]
	return channel, ok, nil
}

type mockTrackSearcher struct {
	loadErr    error
	loadResult *ports.LoadResult
	queries    []string
}

func (m *mockTrackSearcher) LoadTracks(_ context.Context, query string) (*ports.LoadResult, error) {
	m.queries = append(m.queries, query)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loadResult, nil
}

type mockEventPublisher struct {
	mu               sync.Mutex
	trackEnded       []ports.TrackEndedEvent
	trackException   []ports.TrackExceptionEvent
	playbackStarted  []ports.PlaybackStartedEvent
	playbackFinished []ports.PlaybackFinishedEvent
	playbackError    []ports.PlaybackErrorEvent
}

func (m *mockEventPublisher) PublishTrackEnded(event ports.TrackEndedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackEnded = append(m.trackEnded, event)
}

func (m *mockEventPublisher) PublishTrackException(event ports.TrackExceptionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackException = append(m.trackException, event)
}

func (m *mockEventPublisher) PublishPlaybackStarted(event ports.PlaybackStartedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playbackStarted = append(m.playbackStarted, event)
}

func (m *mockEventPublisher) PublishPlaybackFinished(event ports.PlaybackFinishedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playbackFinished = append(m.playbackFinished, event)
}

func (m *mockEventPublisher) PublishPlaybackError(event ports.PlaybackErrorEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playbackError = append(m.playbackError, event)
}

var errRemoteDown = errors.New("remote down")
