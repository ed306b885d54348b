/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/samborkent/uuidv7"
	"github.com/xorcare/pointer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const instrumentationName = "github.com/Seednode/pitchside/gallery"

const (
	DefaultMaxUpload     int64 = 10 << 20
	MaxTitleLength             = 100
	MaxDescriptionLength       = 500
	MaxNameLength              = 50
	MaxCommentLength           = 1000

	DefaultTitle = "Untitled"
	DefaultName  = "Anonymous"
)

// ValidationError reports a problem with caller-supplied input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Errors returned by write operations. The cause is logged, not returned.
var (
	ErrNotFound      = errors.New("photo not found")
	ErrUploadFailed  = errors.New("failed to upload photo")
	ErrCommentFailed = errors.New("failed to add comment")
	ErrLikeFailed    = errors.New("failed to update like")
	ErrDeleteFailed  = errors.New("failed to delete photo")
)

type counters struct {
	uploaded metric.Int64Counter
	comments metric.Int64Counter
	likes    metric.Int64Counter
	deleted  metric.Int64Counter
}

func newCounters(mp metric.MeterProvider) (counters, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(instrumentationName)

	var (
		c   counters
		err error
	)

	if c.uploaded, err = m.Int64Counter("gallery.photos.uploaded",
		metric.WithDescription("Photos uploaded")); err != nil {
		return c, fmt.Errorf("creating uploaded counter: %w", err)
	}
	if c.comments, err = m.Int64Counter("gallery.comments.added",
		metric.WithDescription("Comments added")); err != nil {
		return c, fmt.Errorf("creating comments counter: %w", err)
	}
	if c.likes, err = m.Int64Counter("gallery.likes.toggled",
		metric.WithDescription("Like toggles, by resulting state")); err != nil {
		return c, fmt.Errorf("creating likes counter: %w", err)
	}
	if c.deleted, err = m.Int64Counter("gallery.photos.deleted",
		metric.WithDescription("Photos deleted")); err != nil {
		return c, fmt.Errorf("creating deleted counter: %w", err)
	}

	return c, nil
}

// Options configures a Service.
type Options struct {
	DB        *gorm.DB
	Blobs     BlobStore
	Logger    zerolog.Logger
	MaxUpload int64            // bytes; DefaultMaxUpload when zero
	Now       func() time.Time // time.Now when nil

	// Meters receives the gallery counters. The global provider is used
	// when nil.
	Meters metric.MeterProvider
}

// Service implements the photo operations on top of a database and a
// blob store. Reads swallow failures after logging them; writes log the
// cause and return one of the package's generic errors.
type Service struct {
	db        *gorm.DB
	blobs     BlobStore
	log       zerolog.Logger
	maxUpload int64
	now       func() time.Time
	metrics   counters
}

// NewService builds a Service.
func NewService(opts Options) (*Service, error) {
	if opts.DB == nil {
		return nil, errors.New("gallery: nil database")
	}
	if opts.Blobs == nil {
		return nil, errors.New("gallery: nil blob store")
	}

	c, err := newCounters(opts.Meters)
	if err != nil {
		return nil, err
	}

	s := &Service{
		db:        opts.DB,
		blobs:     opts.Blobs,
		log:       opts.Logger,
		maxUpload: opts.MaxUpload,
		now:       opts.Now,
		metrics:   c,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s, nil
}

// MaxUpload is the largest accepted upload, in bytes.
func (s *Service) MaxUpload() int64 {
	return s.maxUpload
}

// Blobs exposes the blob store, for serving image bytes.
func (s *Service) Blobs() BlobStore {
	return s.blobs
}

func orderComments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func (s *Service) markLiked(ctx context.Context, clientID string, photos []Photo) error {
	if clientID == "" || len(photos) == 0 {
		return nil
	}

	ids := make([]string, len(photos))
	for i := range photos {
		ids[i] = photos[i].ID
	}

	var liked []string
	if err := s.db.WithContext(ctx).Model(&Like{}).
		Where("client_id = ? AND photo_id IN ?", clientID, ids).
		Pluck("photo_id", &liked).Error; err != nil {
		return err
	}

	set := make(map[string]bool, len(liked))
	for _, id := range liked {
		set[id] = true
	}
	for i := range photos {
		photos[i].IsLiked = set[photos[i].ID]
	}

	return nil
}

// ListPhotos returns every photo, newest first, with comments attached.
// Errors are logged and yield an empty list.
func (s *Service) ListPhotos(ctx context.Context, clientID string) []Photo {
	var photos []Photo

	err := s.db.WithContext(ctx).
		Preload("Comments", orderComments).
		Order("created_at DESC, id DESC").
		Find(&photos).Error
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list photos")
		return []Photo{}
	}

	if err := s.markLiked(ctx, clientID, photos); err != nil {
		s.log.Warn().Err(err).Msg("failed to load likes")
	}

	for i := range photos {
		if photos[i].Comments == nil {
			photos[i].Comments = []Comment{}
		}
	}

	if photos == nil {
		photos = []Photo{}
	}

	return photos
}

// GetPhoto returns one photo with its comments oldest first, or nil if it
// does not exist or could not be loaded.
func (s *Service) GetPhoto(ctx context.Context, id, clientID string) *Photo {
	var photo Photo

	err := s.db.WithContext(ctx).
		Preload("Comments", orderComments).
		First(&photo, "id = ?", id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error().Err(err).Str("photo", id).Msg("failed to load photo")
		}
		return nil
	}

	photos := []Photo{photo}
	if err := s.markLiked(ctx, clientID, photos); err != nil {
		s.log.Warn().Err(err).Str("photo", id).Msg("failed to load likes")
	}
	photo = photos[0]

	if photo.Comments == nil {
		photo.Comments = []Comment{}
	}

	return &photo
}

// Upload is a photo submission.
type Upload struct {
	Filename    string
	Body        io.Reader
	Title       string
	Description string
}

// sniffImage identifies image data and its dimensions. Content sniffing
// covers the common web formats; anything else must decode as an image.
func sniffImage(data []byte) (contentType string, width, height int, ok bool) {
	contentType = http.DetectContentType(data)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))

	switch {
	case strings.HasPrefix(contentType, "image/") && err == nil:
		return contentType, cfg.Width, cfg.Height, true
	case strings.HasPrefix(contentType, "image/"):
		return contentType, 0, 0, true
	case err == nil:
		return "image/" + format, cfg.Width, cfg.Height, true
	}

	return "", 0, 0, false
}

// UploadPhoto validates and stores an image, returning the new photo id.
func (s *Service) UploadPhoto(ctx context.Context, up Upload) (string, error) {
	if up.Body == nil {
		return "", invalid("file", "no file selected")
	}

	title := strings.TrimSpace(up.Title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", invalid("title", "title must be at most %d characters", MaxTitleLength)
	}
	if title == "" {
		title = DefaultTitle
	}

	description := strings.TrimSpace(up.Description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", invalid("description", "description must be at most %d characters", MaxDescriptionLength)
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, s.maxUpload+1))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read upload")
		return "", ErrUploadFailed
	}
	if len(data) == 0 {
		return "", invalid("file", "no file selected")
	}
	if int64(len(data)) > s.maxUpload {
		if s.maxUpload < 1<<20 {
			return "", invalid("file", "file must be %d bytes or smaller", s.maxUpload)
		}
		return "", invalid("file", "file must be %d MB or smaller", s.maxUpload>>20)
	}

	contentType, width, height, ok := sniffImage(data)
	if !ok {
		return "", invalid("file", "only image files can be uploaded")
	}

	now := s.now().UTC()
	id := uuidv7.New().String()
	key := blobKey(now, id, up.Filename)

	obj, err := s.blobs.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to store image")
		return "", ErrUploadFailed
	}

	meta, err := json.Marshal(BlobInfo{
		Key:         obj.Key,
		Filename:    up.Filename,
		ContentType: contentType,
		Size:        obj.Size,
		Width:       width,
		Height:      height,
	})
	if err != nil {
		s.discardBlob(ctx, obj.Key)
		s.log.Error().Err(err).Msg("failed to encode blob metadata")
		return "", ErrUploadFailed
	}

	photo := Photo{
		ID:        id,
		URL:       obj.URL,
		Title:     title,
		Blob:      datatypes.JSON(meta),
		CreatedAt: now,
	}
	if description != "" {
		photo.Description = pointer.String(description)
	}

	if err := s.db.WithContext(ctx).Create(&photo).Error; err != nil {
		s.discardBlob(ctx, obj.Key)
		s.log.Error().Err(err).Str("photo", id).Msg("failed to save photo")
		return "", ErrUploadFailed
	}

	s.metrics.uploaded.Add(ctx, 1)
	s.log.Info().Str("photo", id).Str("type", contentType).Int64("size", obj.Size).Msg("photo uploaded")

	return id, nil
}

func (s *Service) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to remove blob")
	}
}

func (s *Service) photoExists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&Photo{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// AddComment attaches a comment to a photo. A blank name is posted as
// DefaultName.
func (s *Service) AddComment(ctx context.Context, photoID, name, content string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, invalid("content", "comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return Comment{}, invalid("content", "comment must be at most %d characters", MaxCommentLength)
	}

	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Comment{}, invalid("name", "name must be at most %d characters", MaxNameLength)
	}
	if name == "" {
		name = DefaultName
	}

	exists, err := s.photoExists(ctx, s.db, photoID)
	if err != nil {
		s.log.Error().Err(err).Str("photo", photoID).Msg("failed to look up photo")
		return Comment{}, ErrCommentFailed
	}
	if !exists {
		return Comment{}, ErrNotFound
	}

	comment := Comment{
		ID:        uuidv7.New().String(),
		PhotoID:   photoID,
		Name:      name,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		s.log.Error().Err(err).Str("photo", photoID).Msg("failed to add comment")
		return Comment{}, ErrCommentFailed
	}

	s.metrics.comments.Add(ctx, 1)

	return comment, nil
}

// ToggleLike likes the photo for clientID, or removes an existing like,
// and returns the new state along with the refreshed like count.
func (s *Service) ToggleLike(ctx context.Context, photoID, clientID string) (LikeResult, error) {
	if clientID == "" {
		return LikeResult{}, invalid("client", "missing client identity")
	}

	var result LikeResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.photoExists(ctx, tx, photoID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		res := tx.Where("client_id = ? AND photo_id = ?", clientID, photoID).Delete(&Like{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			like := Like{
				ID:        uuidv7.New().String(),
				ClientID:  clientID,
				PhotoID:   photoID,
				CreatedAt: s.now().UTC(),
			}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			result.IsLiked = true
		}

		var count int64
		if err := tx.Model(&Like{}).Where("photo_id = ?", photoID).Count(&count).Error; err != nil {
			return err
		}
		result.LikeCount = int(count)

		return tx.Model(&Photo{}).Where("id = ?", photoID).UpdateColumn("like_count", result.LikeCount).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LikeResult{}, ErrNotFound
		}
		s.log.Error().Err(err).Str("photo", photoID).Msg("failed to toggle like")
		return LikeResult{}, ErrLikeFailed
	}

	s.metrics.likes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("liked", result.IsLiked)))

	return result, nil
}

// DeletePhoto removes a photo, its comments and likes, and its image.
func (s *Service) DeletePhoto(ctx context.Context, id string) error {
	var photo Photo

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&photo, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("photo_id = ?", id).Delete(&Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("photo_id = ?", id).Delete(&Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Photo{}, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Str("photo", id).Msg("failed to delete photo")
		return ErrDeleteFailed
	}

	if info, err := photo.BlobInfo(); err != nil {
		s.log.Warn().Err(err).Str("photo", id).Msg("unreadable blob metadata")
	} else if info.Key != "" {
		s.discardBlob(ctx, info.Key)
	}

	s.metrics.deleted.Add(ctx, 1)
	s.log.Info().Str("photo", id).Msg("photo deleted")

	return nil
}
