package gallery

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"strconv"
)

//go:embed templates/gallery.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/gallery.html"))

type pageData struct {
	Header []string
	Count  int
	Images []Image
}

// Handler serves the gallery page at "/" and the images at "/image/{key}",
// where key is the image index. Responses are never cached, so images with
// the same index in different record files are always shown correctly.
func Handler(g *Gallery, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		data := pageData{Header: g.Paths(), Count: g.Len(), Images: g.Images()}
		if err := pageTemplate.Execute(&buf, data); err != nil {
			logger.Printf("gallery: render page: %v", err)
			http.Error(w, "failed to render gallery", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("GET /image/{key}", func(w http.ResponseWriter, r *http.Request) {
		key, err := strconv.Atoi(r.PathValue("key"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		img, ok := g.Image(key)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", img.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
		w.Write(img.Data)
	})
	return noCache(mux)
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
