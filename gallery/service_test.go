package gallery

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingStore struct {
	*FSStore
	keys []string
}

func (r *recordingStore) Put(ctx context.Context, key, contentType string, body io.Reader) (Object, error) {
	r.keys = append(r.keys, key)
	return r.FSStore.Put(ctx, key, contentType, body)
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	blobs *recordingStore
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()

	db, err := Open(StoreConfig{}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	blobs := &recordingStore{FSStore: NewFSStore(afero.NewMemMapFs(), "/blobs")}

	clock := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(Options{
		DB:        db,
		Blobs:     blobs,
		Logger:    zerolog.Nop(),
		MaxUpload: maxUpload,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)

	return &fixture{svc: svc, db: db, blobs: blobs}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func (f *fixture) upload(t *testing.T, title string) string {
	t.Helper()

	id, err := f.svc.UploadPhoto(context.Background(), Upload{
		Filename: "kickoff.png",
		Body:     bytes.NewReader(pngBytes(t, 4, 3)),
		Title:    title,
	})
	require.NoError(t, err)
	return id
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Equal(t, field, verr.Field)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Options{Blobs: NewFSStore(afero.NewMemMapFs(), "")})
	assert.Error(t, err)

	f := newFixture(t, 0)
	_, err = NewService(Options{DB: f.db})
	assert.Error(t, err)
	assert.Equal(t, DefaultMaxUpload, f.svc.MaxUpload())
}

func TestUploadAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	id, err := f.svc.UploadPhoto(ctx, Upload{
		Filename:    "my formation.png",
		Body:        bytes.NewReader(pngBytes(t, 4, 3)),
		Title:       "  Back four  ",
		Description: "Flat line",
	})
	require.NoError(t, err)
	require.Len(t, f.blobs.keys, 1)

	photo := f.svc.GetPhoto(ctx, id, "")
	require.NotNil(t, photo)
	assert.Equal(t, "Back four", photo.Title)
	require.NotNil(t, photo.Description)
	assert.Equal(t, "Flat line", *photo.Description)
	assert.Equal(t, 0, photo.LikeCount)
	assert.False(t, photo.IsLiked)
	assert.Empty(t, photo.Comments)
	assert.NotNil(t, photo.Comments)
	assert.Equal(t, "/blobs/"+f.blobs.keys[0], photo.URL)

	info, err := photo.BlobInfo()
	require.NoError(t, err)
	assert.Equal(t, f.blobs.keys[0], info.Key)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, "my formation.png", info.Filename)
	assert.Equal(t, 4, info.Width)
	assert.Equal(t, 3, info.Height)
	assert.True(t, strings.HasSuffix(info.Key, "-my-formation.png"))

	rc, _, err := f.blobs.Open(info.Key)
	require.NoError(t, err)
	defer rc.Close()

	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(stored)), info.Size)
}

func TestUploadDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	id := f.upload(t, "   ")

	photo := f.svc.GetPhoto(ctx, id, "")
	require.NotNil(t, photo)
	assert.Equal(t, DefaultTitle, photo.Title)
	assert.Nil(t, photo.Description)
}

func TestUploadValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1024)
	img := pngBytes(t, 2, 2)

	tests := []struct {
		name  string
		up    Upload
		field string
	}{
		{"no body", Upload{}, "file"},
		{"empty body", Upload{Body: bytes.NewReader(nil)}, "file"},
		{"not an image", Upload{Body: strings.NewReader("just some text")}, "file"},
		{"too large", Upload{Body: bytes.NewReader(make([]byte, 2048))}, "file"},
		{"long title", Upload{Body: bytes.NewReader(img), Title: strings.Repeat("é", MaxTitleLength+1)}, "title"},
		{"long description", Upload{Body: bytes.NewReader(img), Description: strings.Repeat("x", MaxDescriptionLength+1)}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UploadPhoto(ctx, tt.up)
			assertValidation(t, err, tt.field)
		})
	}

	assert.Empty(t, f.blobs.keys)
	assert.Empty(t, f.svc.ListPhotos(ctx, ""))
}

func TestUploadTitleAtLimit(t *testing.T) {
	f := newFixture(t, 0)

	id := f.upload(t, strings.Repeat("é", MaxTitleLength))

	photo := f.svc.GetPhoto(context.Background(), id, "")
	require.NotNil(t, photo)
	assert.Equal(t, MaxTitleLength, len([]rune(photo.Title)))
}

func TestListPhotosNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	assert.Equal(t, []Photo{}, f.svc.ListPhotos(ctx, ""))

	first := f.upload(t, "first")
	second := f.upload(t, "second")
	third := f.upload(t, "third")

	photos := f.svc.ListPhotos(ctx, "")
	require.Len(t, photos, 3)
	assert.Equal(t, []string{third, second, first}, []string{photos[0].ID, photos[1].ID, photos[2].ID})
	for _, p := range photos {
		assert.NotNil(t, p.Comments)
	}
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	id := f.upload(t, "press")

	res, err := f.svc.ToggleLike(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{IsLiked: true, LikeCount: 1}, res)

	res, err = f.svc.ToggleLike(ctx, id, "bob")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{IsLiked: true, LikeCount: 2}, res)

	res, err = f.svc.ToggleLike(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{IsLiked: false, LikeCount: 1}, res)

	var likes int64
	require.NoError(t, f.db.Model(&Like{}).Where("photo_id = ?", id).Count(&likes).Error)
	assert.Equal(t, int64(1), likes)

	photo := f.svc.GetPhoto(ctx, id, "bob")
	require.NotNil(t, photo)
	assert.True(t, photo.IsLiked)
	assert.Equal(t, 1, photo.LikeCount)

	photo = f.svc.GetPhoto(ctx, id, "alice")
	require.NotNil(t, photo)
	assert.False(t, photo.IsLiked)
}

func TestToggleLikeErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	id := f.upload(t, "")

	_, err := f.svc.ToggleLike(ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ToggleLike(ctx, id, "")
	assertValidation(t, err, "client")
}

func TestListPhotosMarksLikes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	liked := f.upload(t, "liked")
	other := f.upload(t, "other")

	_, err := f.svc.ToggleLike(ctx, liked, "alice")
	require.NoError(t, err)

	byID := func(photos []Photo) map[string]Photo {
		m := make(map[string]Photo, len(photos))
		for _, p := range photos {
			m[p.ID] = p
		}
		return m
	}

	forAlice := byID(f.svc.ListPhotos(ctx, "alice"))
	assert.True(t, forAlice[liked].IsLiked)
	assert.Equal(t, 1, forAlice[liked].LikeCount)
	assert.False(t, forAlice[other].IsLiked)

	forBob := byID(f.svc.ListPhotos(ctx, "bob"))
	assert.False(t, forBob[liked].IsLiked)
	assert.Equal(t, 1, forBob[liked].LikeCount)
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	id := f.upload(t, "")

	first, err := f.svc.AddComment(ctx, id, "  ", "Nice shape")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, first.Name)
	assert.Equal(t, id, first.PhotoID)

	second, err := f.svc.AddComment(ctx, id, "Coach", "  Push higher  ")
	require.NoError(t, err)
	assert.Equal(t, "Coach", second.Name)
	assert.Equal(t, "Push higher", second.Content)

	photo := f.svc.GetPhoto(ctx, id, "")
	require.NotNil(t, photo)
	require.Len(t, photo.Comments, 2)
	assert.Equal(t, first.ID, photo.Comments[0].ID)
	assert.Equal(t, second.ID, photo.Comments[1].ID)
}

func TestAddCommentErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	id := f.upload(t, "")

	_, err := f.svc.AddComment(ctx, id, "Coach", "   ")
	assertValidation(t, err, "content")

	_, err = f.svc.AddComment(ctx, id, strings.Repeat("n", MaxNameLength+1), "hi")
	assertValidation(t, err, "name")

	_, err = f.svc.AddComment(ctx, id, "", strings.Repeat("c", MaxCommentLength+1))
	assertValidation(t, err, "content")

	_, err = f.svc.AddComment(ctx, "missing", "", "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePhotoCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	id := f.upload(t, "doomed")
	keep := f.upload(t, "keeper")

	_, err := f.svc.AddComment(ctx, id, "", "bye")
	require.NoError(t, err)
	_, err = f.svc.ToggleLike(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, keep, "", "stay")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePhoto(ctx, id))

	assert.Nil(t, f.svc.GetPhoto(ctx, id, ""))

	var comments, likes int64
	require.NoError(t, f.db.Model(&Comment{}).Where("photo_id = ?", id).Count(&comments).Error)
	require.NoError(t, f.db.Model(&Like{}).Where("photo_id = ?", id).Count(&likes).Error)
	assert.Zero(t, comments)
	assert.Zero(t, likes)

	_, _, err = f.blobs.Open(f.blobs.keys[0])
	assert.ErrorIs(t, err, ErrBlobNotFound)

	kept := f.svc.GetPhoto(ctx, keep, "")
	require.NotNil(t, kept)
	assert.Len(t, kept.Comments, 1)

	assert.ErrorIs(t, f.svc.DeletePhoto(ctx, id), ErrNotFound)
}

func TestGetPhotoMissing(t *testing.T) {
	f := newFixture(t, 0)
	assert.Nil(t, f.svc.GetPhoto(context.Background(), "nope", ""))
}

func TestFailuresAreSwallowedOrGeneric(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	id := f.upload(t, "")

	require.NoError(t, Close(f.db))

	assert.Equal(t, []Photo{}, f.svc.ListPhotos(ctx, "alice"))
	assert.Nil(t, f.svc.GetPhoto(ctx, id, ""))

	_, err := f.svc.UploadPhoto(ctx, Upload{Filename: "late.png", Body: bytes.NewReader(pngBytes(t, 1, 1))})
	assert.ErrorIs(t, err, ErrUploadFailed)
	require.Len(t, f.blobs.keys, 2)
	_, _, err = f.blobs.Open(f.blobs.keys[1])
	assert.ErrorIs(t, err, ErrBlobNotFound)

	_, err = f.svc.AddComment(ctx, id, "", "hello")
	assert.ErrorIs(t, err, ErrCommentFailed)

	_, err = f.svc.ToggleLike(ctx, id, "alice")
	assert.ErrorIs(t, err, ErrLikeFailed)

	assert.ErrorIs(t, f.svc.DeletePhoto(ctx, id), ErrDeleteFailed)
}

func TestSniffImage(t *testing.T) {
	ct, w, h, ok := sniffImage(pngBytes(t, 7, 5))
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, 7, w)
	assert.Equal(t, 5, h)

	_, _, _, ok = sniffImage([]byte("<html></html>"))
	assert.False(t, ok)
}
