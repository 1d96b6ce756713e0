package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server holds the two preview routers: the site itself and the control API.
type Server struct {
	app         *App
	logger      *slog.Logger
	serverAPI   *ServerAPI
	buildAPI    *BuildAPI
	templateAPI *TemplateAPI
	publishAPI  *PublishAPI
	siteRouter  *chi.Mux
	apiRouter   *chi.Mux
}

// NewServer creates the API handler groups and registers their routes.
// scheduler may be nil.
func NewServer(app *App, scheduler *Scheduler, actionChan chan string) *Server {
	server := &Server{
		app:         app,
		logger:      app.logger,
		serverAPI:   NewServerAPI(app.cm, actionChan, app.logger),
		buildAPI:    NewBuildAPI(app.builder, app.ledger, app.logger),
		templateAPI: NewTemplateAPI(app.tm, app.logger),
		publishAPI:  NewPublishAPI(app, scheduler, app.logger),
		siteRouter:  chi.NewRouter(),
		apiRouter:   chi.NewRouter(),
	}

	server.siteRouter.Use(middleware.Recoverer)
	server.siteRouter.Get("/*", server.handleSite)
	server.siteRouter.Head("/*", server.handleSite)

	server.apiRouter.Use(middleware.Recoverer)
	server.apiRouter.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not Found")
	})
	server.apiRouter.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	server.apiRouter.Get("/api/health", server.serverAPI.handleHealthCheck)
	server.serverAPI.RegisterRoutes(server.apiRouter)
	server.buildAPI.RegisterRoutes(server.apiRouter)
	server.templateAPI.RegisterRoutes(server.apiRouter)
	server.publishAPI.RegisterRoutes(server.apiRouter)

	return server
}

// resolveSitePath maps a request path to a file under siteDir. Directories
// resolve to the default document; redirect is set when a directory was
// requested without its trailing slash.
func resolveSitePath(siteDir, urlPath, defaultDoc string) (file string, redirect bool, err error) {
	clean := path.Clean("/" + urlPath)
	file = filepath.Join(siteDir, filepath.FromSlash(clean))

	info, err := os.Stat(file)
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			return "", true, nil
		}
		file = filepath.Join(file, defaultDoc)
		if info, err = os.Stat(file); err != nil {
			return "", false, err
		}
		if info.IsDir() {
			return "", false, fs.ErrNotExist
		}
	}
	return file, false, nil
}

// handleSite serves a file from the site directory. HTML pages are fixed on
// the way out with the request path as the current location, the same as
// the page script would see it in a browser.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	config := s.app.cm.Get()
	file, redirect, err := resolveSitePath(config.Server.SiteDir, r.URL.Path, config.Page.DefaultDocument)
	if redirect {
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("Failed to resolve site path", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	for k, v := range config.Server.Headers {
		w.Header().Set(k, v)
	}

	if !isPage(file) {
		http.ServeFile(w, r, file)
		return
	}

	src, err := os.ReadFile(file)
	if err != nil {
		s.logger.Error("Failed to read page", "file", file, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	out, res, err := s.app.fixer.RewriteBytes(src, r.URL.Path)
	if err != nil {
		s.logger.Warn("Serving page unfixed", "path", r.URL.Path, "error", err)
		out = src
	}
	s.logger.Debug("Serving page", "path", r.URL.Path, "year_stamped", res.YearStamped, "active", res.Active)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(out)
	}
}
