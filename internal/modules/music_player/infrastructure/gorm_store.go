package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type songRow struct {
	ID           string `gorm:"primaryKey"`
	Title        string
	Artists      []domain.ArtistRef `gorm:"serializer:json"`
	Album        *domain.AlbumRef   `gorm:"serializer:json"`
	Duration     int
	IsLocal      bool
	LocalPath    string `gorm:"index"`
	ThumbnailURL string
	DateAdded    time.Time
	DateModified time.Time
	ReleaseDate  time.Time
	PlayTimeMs   int64
	PlayCount    int
	Downloaded   bool
}

func (songRow) TableName() string { return "songs" }

type relatedSongRow struct {
	ID            uint   `gorm:"primaryKey"`
	SongID        string `gorm:"uniqueIndex:idx_related_pair"`
	RelatedSongID string `gorm:"uniqueIndex:idx_related_pair"`
}

func (relatedSongRow) TableName() string { return "related_song_map" }

// queueRow is one queue of a board. BoardIndex orders the queues of an owner;
// the highest one is the current queue.
type queueRow struct {
	ID         string `gorm:"primaryKey"`
	Owner      int64  `gorm:"index"`
	Title      string
	IsShuffled bool
	Position   int
	PlaylistID string
	BoardIndex int
}

func (queueRow) TableName() string { return "queues" }

// queueSongRow records one membership of a song in a queue. Every item is
// stored twice: once in canonical order and once in shuffled order. Shuffled
// rows point back at their canonical row through CanonicalIndex.
type queueSongRow struct {
	ID             uint   `gorm:"primaryKey"`
	QueueID        string `gorm:"index"`
	SongID         string
	Shuffled       bool
	ItemIndex      int
	CanonicalIndex int
}

func (queueSongRow) TableName() string { return "queue_song_map" }

type formatRow struct {
	TrackID       string `gorm:"primaryKey"`
	Itag          int
	MimeType      string
	Codecs        string
	Bitrate       int
	SampleRate    int
	ContentLength int64
	LoudnessDB    *float64
	PlaybackURL   string
}

func (formatRow) TableName() string { return "formats" }

type checkpointRow struct {
	Owner      int64 `gorm:"primaryKey;autoIncrement:false"`
	PositionMs int64
}

func (checkpointRow) TableName() string { return "playback_checkpoints" }

// GormStore persists queues, songs and formats in a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore. The schema must be migrated.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Ensure GormStore implements the repository contracts.
var (
	_ domain.QueueRepository  = (*GormStore)(nil)
	_ domain.SongRepository   = (*GormStore)(nil)
	_ domain.FormatRepository = (*GormStore)(nil)
)

// ReadQueues returns the owner's queues in board order, the current queue last.
func (s *GormStore) ReadQueues(ctx context.Context, owner snowflake.ID) ([]*domain.MultiQueue, error) {
	db := s.db.WithContext(ctx)

	var queues []queueRow
	if err := db.Where("owner = ?", int64(owner)).Order("board_index").Find(&queues).Error; err != nil {
		return nil, fmt.Errorf("failed to read queues: %w", err)
	}
	if len(queues) == 0 {
		return nil, nil
	}

	var items []queueSongRow
	queueIDs := lo.Map(queues, func(q queueRow, _ int) string { return q.ID })
	if err := db.Where("queue_id IN ?", queueIDs).
		Order("queue_id, shuffled, item_index").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to read queue items: %w", err)
	}

	songs, err := s.songsByID(db, lo.Uniq(lo.Map(items, func(item queueSongRow, _ int) string {
		return item.SongID
	})))
	if err != nil {
		return nil, err
	}

	byQueue := lo.GroupBy(items, func(item queueSongRow) string { return item.QueueID })

	result := make([]*domain.MultiQueue, 0, len(queues))
	for _, q := range queues {
		snapshot := domain.QueueSnapshot{
			ID:         q.ID,
			Title:      q.Title,
			PlaylistID: q.PlaylistID,
			IsShuffled: q.IsShuffled,
			Position:   q.Position,
		}
		for _, item := range byQueue[q.ID] {
			track := songs[item.SongID]
			if item.Shuffled {
				snapshot.ShuffledOrder = append(snapshot.ShuffledOrder, track)
				snapshot.ShuffledIndexes = append(snapshot.ShuffledIndexes, item.CanonicalIndex)
			} else {
				snapshot.UnshuffledOrder = append(snapshot.UnshuffledOrder, track)
			}
		}
		if len(snapshot.UnshuffledOrder) == 0 {
			continue
		}
		result = append(result, domain.RestoreMultiQueue(snapshot))
	}

	return result, nil
}

// songsByID loads songs by id. Ids without a stored song map to a bare track.
func (s *GormStore) songsByID(db *gorm.DB, ids []string) (map[string]domain.Track, error) {
	var rows []songRow
	if len(ids) > 0 {
		if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to read songs: %w", err)
		}
	}

	songs := make(map[string]domain.Track, len(ids))
	for _, id := range ids {
		songs[id] = domain.Track{ID: domain.TrackID(id), Duration: domain.UnknownDuration}
	}
	for _, row := range rows {
		songs[row.ID] = row.toTrack()
	}
	return songs, nil
}

// WriteQueues replaces every persisted queue of owner. Empty queues are skipped.
func (s *GormStore) WriteQueues(ctx context.Context, owner snowflake.ID, queues []*domain.MultiQueue) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldIDs []string
		if err := tx.Model(&queueRow{}).Where("owner = ?", int64(owner)).Pluck("id", &oldIDs).Error; err != nil {
			return fmt.Errorf("failed to list queues: %w", err)
		}
		if len(oldIDs) > 0 {
			if err := tx.Where("queue_id IN ?", oldIDs).Delete(&queueSongRow{}).Error; err != nil {
				return fmt.Errorf("failed to delete queue items: %w", err)
			}
			if err := tx.Where("id IN ?", oldIDs).Delete(&queueRow{}).Error; err != nil {
				return fmt.Errorf("failed to delete queues: %w", err)
			}
		}

		var (
			queueRows []queueRow
			itemRows  []queueSongRow
			tracks    []domain.Track
		)
		for _, q := range queues {
			if q == nil || q.IsEmpty() {
				continue
			}
			snapshot := q.Snapshot()
			queueRows = append(queueRows, queueRow{
				ID:         snapshot.ID,
				Owner:      int64(owner),
				Title:      snapshot.Title,
				IsShuffled: snapshot.IsShuffled,
				Position:   snapshot.Position,
				PlaylistID: snapshot.PlaylistID,
				BoardIndex: len(queueRows),
			})
			for i, track := range snapshot.UnshuffledOrder {
				itemRows = append(itemRows, queueSongRow{
					QueueID:        snapshot.ID,
					SongID:         string(track.ID),
					ItemIndex:      i,
					CanonicalIndex: i,
				})
			}
			for i, track := range snapshot.ShuffledOrder {
				itemRows = append(itemRows, queueSongRow{
					QueueID:        snapshot.ID,
					SongID:         string(track.ID),
					Shuffled:       true,
					ItemIndex:      i,
					CanonicalIndex: snapshot.ShuffledIndexes[i],
				})
			}
			tracks = append(tracks, snapshot.UnshuffledOrder...)
		}

		if len(queueRows) == 0 {
			return nil
		}
		if err := insertSongs(tx, tracks); err != nil {
			return err
		}
		if err := tx.Create(&queueRows).Error; err != nil {
			return fmt.Errorf("failed to insert queues: %w", err)
		}
		if err := tx.CreateInBatches(&itemRows, 500).Error; err != nil {
			return fmt.Errorf("failed to insert queue items: %w", err)
		}
		return nil
	})
}

// ReadLastPosition returns the saved playback position, or 0.
func (s *GormStore) ReadLastPosition(ctx context.Context, owner snowflake.ID) (time.Duration, error) {
	var row checkpointRow
	err := s.db.WithContext(ctx).Where("owner = ?", int64(owner)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read playback position: %w", err)
	}
	return time.Duration(row.PositionMs) * time.Millisecond, nil
}

// WriteLastPosition saves the playback position. Zero clears it.
func (s *GormStore) WriteLastPosition(ctx context.Context, owner snowflake.ID, position time.Duration) error {
	db := s.db.WithContext(ctx)
	if position <= 0 {
		if err := db.Where("owner = ?", int64(owner)).Delete(&checkpointRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear playback position: %w", err)
		}
		return nil
	}

	row := checkpointRow{Owner: int64(owner), PositionMs: position.Milliseconds()}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write playback position: %w", err)
	}
	return nil
}

// GetSong returns the stored track, or nil if unknown.
func (s *GormStore) GetSong(ctx context.Context, id domain.TrackID) (*domain.Track, error) {
	var row songRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read song: %w", err)
	}
	track := row.toTrack()
	return &track, nil
}

// InsertSongs stores tracks that are not stored yet. Existing rows are left untouched.
func (s *GormStore) InsertSongs(ctx context.Context, tracks []domain.Track) error {
	return insertSongs(s.db.WithContext(ctx), tracks)
}

func insertSongs(db *gorm.DB, tracks []domain.Track) error {
	rows := lo.UniqBy(lo.Map(tracks, func(t domain.Track, _ int) songRow {
		return newSongRow(t)
	}), func(row songRow) string {
		return row.ID
	})
	if len(rows) == 0 {
		return nil
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500).Error; err != nil {
		return fmt.Errorf("failed to insert songs: %w", err)
	}
	return nil
}

// UpdateDuration sets the duration of a stored track.
func (s *GormStore) UpdateDuration(ctx context.Context, id domain.TrackID, seconds int) error {
	if err := s.db.WithContext(ctx).Model(&songRow{}).
		Where("id = ?", string(id)).
		Update("duration", seconds).Error; err != nil {
		return fmt.Errorf("failed to update duration: %w", err)
	}
	return nil
}

// HasRelatedSongs reports whether related tracks are stored for id.
func (s *GormStore) HasRelatedSongs(ctx context.Context, id domain.TrackID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&relatedSongRow{}).
		Where("song_id = ?", string(id)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count related songs: %w", err)
	}
	return count > 0, nil
}

// InsertRelatedSongs stores related tracks and links them to id.
func (s *GormStore) InsertRelatedSongs(ctx context.Context, id domain.TrackID, related []domain.Track) error {
	if len(related) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertSongs(tx, related); err != nil {
			return err
		}
		links := lo.Map(lo.Uniq(domain.TrackIDs(related)), func(relatedID domain.TrackID, _ int) relatedSongRow {
			return relatedSongRow{SongID: string(id), RelatedSongID: string(relatedID)}
		})
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("failed to link related songs: %w", err)
		}
		return nil
	})
}

// ListLocalSongs returns every track with a local path.
func (s *GormStore) ListLocalSongs(ctx context.Context) ([]domain.Track, error) {
	var rows []songRow
	if err := s.db.WithContext(ctx).
		Where("local_path <> ?", "").
		Order("local_path").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list local songs: %w", err)
	}
	return lo.Map(rows, func(row songRow, _ int) domain.Track {
		return row.toTrack()
	}), nil
}

// MarkDownloaded records whether the track's bytes are fully cached.
func (s *GormStore) MarkDownloaded(ctx context.Context, id domain.TrackID, downloaded bool) error {
	if err := s.db.WithContext(ctx).Model(&songRow{}).
		Where("id = ?", string(id)).
		Update("downloaded", downloaded).Error; err != nil {
		return fmt.Errorf("failed to mark downloaded: %w", err)
	}
	return nil
}

// ReadFormat returns the stored format, or nil if the track was never resolved.
func (s *GormStore) ReadFormat(ctx context.Context, id domain.TrackID) (*domain.FormatRecord, error) {
	var row formatRow
	err := s.db.WithContext(ctx).Where("track_id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read format: %w", err)
	}
	return &domain.FormatRecord{
		TrackID:       domain.TrackID(row.TrackID),
		Itag:          row.Itag,
		MimeType:      row.MimeType,
		Codecs:        row.Codecs,
		Bitrate:       row.Bitrate,
		SampleRate:    row.SampleRate,
		ContentLength: row.ContentLength,
		LoudnessDB:    row.LoudnessDB,
		PlaybackURL:   row.PlaybackURL,
	}, nil
}

// UpsertFormat inserts or replaces the format of a track.
func (s *GormStore) UpsertFormat(ctx context.Context, format domain.FormatRecord) error {
	row := formatRow{
		TrackID:       string(format.TrackID),
		Itag:          format.Itag,
		MimeType:      format.MimeType,
		Codecs:        format.Codecs,
		Bitrate:       format.Bitrate,
		SampleRate:    format.SampleRate,
		ContentLength: format.ContentLength,
		LoudnessDB:    format.LoudnessDB,
		PlaybackURL:   format.PlaybackURL,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to upsert format: %w", err)
	}
	return nil
}

func newSongRow(t domain.Track) songRow {
	return songRow{
		ID:           string(t.ID),
		Title:        t.Title,
		Artists:      t.Artists,
		Album:        t.Album,
		Duration:     t.Duration,
		IsLocal:      t.IsLocal,
		LocalPath:    t.LocalPath,
		ThumbnailURL: t.ThumbnailURL,
		DateAdded:    t.DateAdded,
		DateModified: t.DateModified,
		ReleaseDate:  t.ReleaseDate,
		PlayTimeMs:   t.PlayTime.Milliseconds(),
		PlayCount:    t.PlayCount,
		Downloaded:   t.Downloaded,
	}
}

func (row songRow) toTrack() domain.Track {
	return domain.Track{
		ID:           domain.TrackID(row.ID),
		Title:        row.Title,
		Artists:      row.Artists,
		Album:        row.Album,
		Duration:     row.Duration,
		IsLocal:      row.IsLocal,
		LocalPath:    row.LocalPath,
		ThumbnailURL: row.ThumbnailURL,
		DateAdded:    row.DateAdded,
		DateModified: row.DateModified,
		ReleaseDate:  row.ReleaseDate,
		PlayTime:     time.Duration(row.PlayTimeMs) * time.Millisecond,
		PlayCount:    row.PlayCount,
		Downloaded:   row.Downloaded,
	}
}
