/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/afero"

	"github.com/Seednode/pitchside/tactics"
)

// fieldFs is where --field-image is read from.
var fieldFs afero.Fs = afero.NewOsFs()

func homePage(prefix string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`body{font-family:system-ui,sans-serif;max-width:40rem;margin:2rem auto;padding:0 1rem;color:#1b2a1b;}`)
	htmlBody.WriteString(`a{color:#1d6b2e;}li{margin:.4rem 0;}small{color:#555;}</style>`)
	htmlBody.WriteString(`<title>pitchside</title></head><body>`)
	htmlBody.WriteString(`<h1>pitchside</h1><ul>`)
	htmlBody.WriteString(fmt.Sprintf(`<li><a href="%s/tactics">New tactics board</a></li>`, prefix))
	htmlBody.WriteString(fmt.Sprintf(`<li><a href="%s/gallery">Photo gallery</a></li>`, prefix))
	htmlBody.WriteString(`</ul><h2>Examples</h2><ul>`)

	for _, t := range tactics.Templates() {
		htmlBody.WriteString(fmt.Sprintf(`<li><a href="%s/tactics?template=%s">%s</a><br><small>%s</small></li>`,
			prefix,
			html.EscapeString(t.ID),
			html.EscapeString(t.Title),
			html.EscapeString(t.Description),
		))
	}

	htmlBody.WriteString(`</ul></body></html>`)

	return htmlBody.String()
}

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	page := homePage(cfg.prefix)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(page))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

// serveAsset serves a fixed, embedded file.
func serveAsset(cfg *Config, data []byte, contentType string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

// serveFieldImage serves --field-image. Without one, or when it cannot be
// read, the route is a 404 and the board falls back to the SVG field.
func serveFieldImage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if cfg.fieldImage == "" {
			http.NotFound(w, r)
			return
		}

		f, err := fieldFs.Open(cfg.fieldImage)
		if err != nil {
			logf(cfg, "SERVE: Field image unavailable: %v", err)
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(cfg.fieldImage))); ct != "" {
			w.Header().Set("Content-Type", ct)
		}

		http.ServeContent(w, r, filepath.Base(cfg.fieldImage), info.ModTime(), f)
	}
}

// serveQR generates a PNG QR code for the page the request path points at,
// once suffix is stripped.
func serveQR(cfg *Config, suffix string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := cfg.scheme()
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, suffix)

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
