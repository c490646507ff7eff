package main

import (
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/platform/apperr"
)

// spaHandler serves the built frontend: real files as-is, anything else falls back to
// index.html so client-side routes survive a reload. API paths are never rewritten.
func spaHandler(site fs.FS) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			apperr.Respond(c, apperr.NotFound("Not found"))
			return
		}

		reqPath := strings.TrimPrefix(path.Clean(c.Request.URL.Path), "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		if serveFile(c, site, reqPath) {
			return
		}
		if !serveFile(c, site, "index.html") {
			c.Status(http.StatusNotFound)
		}
	}
}

func serveFile(c *gin.Context, site fs.FS, name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	f, err := site.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		return false
	}

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		c.Header("Content-Type", ct)
	}
	// hashed build assets are immutable; index.html must always be revalidated
	if name != "index.html" {
		c.Header("Cache-Control", "public, max-age=86400, immutable")
	} else {
		c.Header("Cache-Control", "no-cache")
	}
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), rs)
	return true
}
