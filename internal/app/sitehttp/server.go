package sitehttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yourname/staticserve/internal/config"
	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/metrics"
	"github.com/yourname/staticserve/internal/usecase/deploysvc"
	"github.com/yourname/staticserve/pkg/deployproto"
)

// compressLevel — уровень gzip/deflate для статики.
const compressLevel = 5

type Deps struct {
	Config  *config.Config
	Deploys deploysvc.Service
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Server обслуживает один снимок конфигурации.
type Server struct {
	Deps

	root  string
	files http.Handler
	fs    neuteredFileSystem
	cache cacheRules
	auth  *authenticator
}

// New создаёт HTTP-обработчик сервера статики.
func New(deps Deps) http.Handler {
	deps.Logger = logger.OrDiscard(deps.Logger)

	root := deps.Config.ServeRoot()
	fsys := neuteredFileSystem{http.Dir(root)}

	srv := &Server{
		Deps:  deps,
		root:  root,
		fs:    fsys,
		files: http.FileServer(fsys),
		cache: newCacheRules(deps.Config.Cache),
		auth:  newAuthenticator(deps.Config.Token, deps.Config.JWT),
	}

	return srv.routes()
}

// routes регистрирует загрузку, служебные эндпоинты и статику.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.With(s.authorize).Post(deployproto.UploadPath, s.upload)
	r.Get(deployproto.HealthPath, s.health)
	if s.Config.Metrics.Enabled && s.Metrics != nil {
		r.Method(http.MethodGet, s.Config.Metrics.Path, s.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(compressLevel))
		r.Use(s.cacheControl)

		for route, file := range s.Config.Routes {
			r.Get(route, s.routeFile(file))
		}
		r.Get("/*", s.static)
	})

	return r
}
