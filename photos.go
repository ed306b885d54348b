/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/pitchside/gallery"
)

const maxCommentBody = 16 << 10

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeServiceError maps gallery errors onto HTTP statuses. Anything that is
// not a validation or not-found error is reported with its generic message.
func writeServiceError(w http.ResponseWriter, err error) error {
	var verr *gallery.ValidationError

	switch {
	case errors.As(err, &verr):
		return writeJSON(w, http.StatusBadRequest, apiError{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, gallery.ErrNotFound):
		return writeJSON(w, http.StatusNotFound, apiError{Error: gallery.ErrNotFound.Error()})
	case errors.Is(err, gallery.ErrUploadFailed),
		errors.Is(err, gallery.ErrCommentFailed),
		errors.Is(err, gallery.ErrLikeFailed),
		errors.Is(err, gallery.ErrDeleteFailed):
		return writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
	}

	return writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal server error"})
}

func servePhotoList(cfg *Config, svc *gallery.Service, ident *Identity, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		clientID := ident.clientID(w, r)
		securityHeaders(cfg, w)

		photos := svc.ListPhotos(r.Context(), clientID)

		if err := writeJSON(w, http.StatusOK, photos); err != nil {
			errs <- err

			return
		}

		logf(cfg, "PHOTO: Listed %d photo(s) to %s in %s",
			len(photos),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func servePhoto(cfg *Config, svc *gallery.Service, ident *Identity, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		clientID := ident.clientID(w, r)
		securityHeaders(cfg, w)

		photo := svc.GetPhoto(r.Context(), ps.ByName("id"), clientID)
		if photo == nil {
			if err := writeJSON(w, http.StatusNotFound, apiError{Error: gallery.ErrNotFound.Error()}); err != nil {
				errs <- err
			}
			return
		}

		if err := writeJSON(w, http.StatusOK, photo); err != nil {
			errs <- err
		}
	}
}

func serveUpload(cfg *Config, svc *gallery.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		securityHeaders(cfg, w)

		// Leave room for the other form fields and multipart framing.
		r.Body = http.MaxBytesReader(w, r.Body, svc.MaxUpload()+1<<20)

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			msg := "malformed upload"
			if errors.As(err, &tooLarge) {
				msg = fmt.Sprintf("file must be %s or smaller", humanReadableSize(svc.MaxUpload()))
			}
			if err := writeJSON(w, http.StatusBadRequest, apiError{Error: msg, Field: "file"}); err != nil {
				errs <- err
			}
			return
		}
		defer r.MultipartForm.RemoveAll()

		up := gallery.Upload{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
		}

		var size int64

		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			up.Filename = header.Filename
			up.Body = file
			size = header.Size
		case !errors.Is(err, http.ErrMissingFile):
			logf(cfg, "PHOTO: Unreadable upload from %s: %v", realIP(r), err)
		}

		id, err := svc.UploadPhoto(r.Context(), up)
		if err != nil {
			if err := writeServiceError(w, err); err != nil {
				errs <- err
			}
			return
		}

		if err := writeJSON(w, http.StatusCreated, map[string]string{"id": id}); err != nil {
			errs <- err

			return
		}

		logf(cfg, "PHOTO: Uploaded %s (%s) from %s in %s",
			id,
			humanReadableSize(size),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

type commentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func serveAddComment(cfg *Config, svc *gallery.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req commentRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxCommentBody)).Decode(&req); err != nil {
			if err := writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed request"}); err != nil {
				errs <- err
			}
			return
		}

		comment, err := svc.AddComment(r.Context(), ps.ByName("id"), req.Name, req.Content)
		if err != nil {
			if err := writeServiceError(w, err); err != nil {
				errs <- err
			}
			return
		}

		if err := writeJSON(w, http.StatusCreated, comment); err != nil {
			errs <- err

			return
		}

		logf(cfg, "PHOTO: Comment on %s from %s", comment.PhotoID, realIP(r))
	}
}

func serveToggleLike(cfg *Config, svc *gallery.Service, ident *Identity, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		clientID := ident.clientID(w, r)
		securityHeaders(cfg, w)

		res, err := svc.ToggleLike(r.Context(), ps.ByName("id"), clientID)
		if err != nil {
			if err := writeServiceError(w, err); err != nil {
				errs <- err
			}
			return
		}

		if err := writeJSON(w, http.StatusOK, res); err != nil {
			errs <- err
		}
	}
}

func serveDeletePhoto(cfg *Config, svc *gallery.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		id := ps.ByName("id")

		if err := svc.DeletePhoto(r.Context(), id); err != nil {
			if err := writeServiceError(w, err); err != nil {
				errs <- err
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)

		logf(cfg, "PHOTO: Deleted %s for %s", id, realIP(r))
	}
}

// serveBlob streams stored image bytes. The content type always comes from
// the bytes themselves, never from the key.
func serveBlob(cfg *Config, blobs gallery.BlobStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		f, modTime, err := blobs.Open(ps.ByName("key"))
		if err != nil {
			if !errors.Is(err, gallery.ErrBlobNotFound) {
				logf(cfg, "PHOTO: Blob read failed: %v", err)
			}
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			http.Error(w, "blob read failed", http.StatusInternalServerError)
			return
		}

		contentType := http.DetectContentType(head[:n])
		if !strings.HasPrefix(contentType, "image/") {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
		securityHeaders(cfg, w)

		http.ServeContent(w, r, "", modTime, f)
	}
}

//go:embed assets/gallery/index.html
var galleryHTML []byte

//go:embed assets/gallery/photo.html
var photoHTML []byte

//go:embed assets/gallery/app.css
var galleryCSS []byte

//go:embed assets/gallery/app.js
var galleryJS []byte

func serveGalleryPage(cfg *Config, page []byte, ident *Identity, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = ident.clientID(w, r)

		if _, err := w.Write(page); err != nil {
			errs <- err
		}
	}
}

// registerGallery sets up routes so that:
//   - /gallery               → gallery page
//   - /gallery/:id           → photo detail page
//   - /gallery/:id/qr        → PNG QR code for the detail page
//   - /api/photos...         → JSON API
//   - /blobs/:key            → image bytes
func registerGallery(cfg *Config, mux *httprouter.Router, svc *gallery.Service, ident *Identity, errs chan<- error) {
	mux.GET(cfg.prefix+"/gallery", serveGalleryPage(cfg, galleryHTML, ident, errs))
	mux.GET(cfg.prefix+"/gallery/:id", serveGalleryPage(cfg, photoHTML, ident, errs))
	mux.GET(cfg.prefix+"/gallery/:id/qr", serveQR(cfg, "/qr", errs))

	mux.GET(cfg.prefix+"/api/photos", servePhotoList(cfg, svc, ident, errs))
	mux.POST(cfg.prefix+"/api/photos", serveUpload(cfg, svc, errs))
	mux.GET(cfg.prefix+"/api/photos/:id", servePhoto(cfg, svc, ident, errs))
	mux.DELETE(cfg.prefix+"/api/photos/:id", serveDeletePhoto(cfg, svc, errs))
	mux.POST(cfg.prefix+"/api/photos/:id/comments", serveAddComment(cfg, svc, errs))
	mux.POST(cfg.prefix+"/api/photos/:id/like", serveToggleLike(cfg, svc, ident, errs))

	mux.GET(cfg.prefix+"/blobs/:key", serveBlob(cfg, svc.Blobs()))

	mux.GET(cfg.prefix+"/assets/gallery/app.css", serveAsset(cfg, galleryCSS, "text/css; charset=utf-8", errs))
	mux.GET(cfg.prefix+"/assets/gallery/app.js", serveAsset(cfg, galleryJS, "text/javascript; charset=utf-8", errs))
}
