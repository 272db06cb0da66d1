package demoapp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/config"
)

const (
	sessionCookie = "boardcheck_session"
	userKey       = "user"
)

// Options configure the demo server.
type Options struct {
	// Accounts allowed to sign in.
	Accounts []config.Credentials
	// Secret signs session cookies. A random one is used when empty.
	Secret string
	// SessionTTL defaults to eight hours.
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Server is the demo task board.
type Server struct {
	board    *Board
	users    *Users
	sessions *SessionManager
	renderer *Renderer
	logger   *zap.Logger
	engine   *gin.Engine
	ttl      time.Duration
}

// New builds the gin engine for board.
func New(board *Board, opts Options, logger *zap.Logger) (*Server, error) {
	if opts.Secret == "" {
		opts.Secret = uuid.NewString()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 8 * time.Hour
	}

	users, err := NewUsers(opts.BcryptCost, opts.Accounts...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		board:    board,
		users:    users,
		sessions: NewSessionManager(opts.Secret, opts.SessionTTL),
		renderer: NewRenderer(logger),
		logger:   logger,
		ttl:      opts.SessionTTL,
	}
	s.engine = s.routes()
	return s, nil
}

// Handler exposes the server for httptest or a custom listener.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "apps": len(s.board.Apps)})
	})
	r.GET("/login", s.showLogin)
	r.POST("/login", s.handleLogin)
	r.POST("/logout", s.handleLogout)

	authed := r.Group("/", s.requireSession())
	authed.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/projects") })
	authed.GET("/projects", s.showProjects)
	authed.GET("/board", s.showBoard)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("demo board listening", zap.String("addr", addr), zap.Strings("apps", s.board.AppNames()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("demo board stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()
		s.logger.Debug("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		claims, err := s.sessions.Validate(token)
		if err != nil {
			s.clearSession(c)
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Set(userKey, claims.Username)
		c.Next()
	}
}

func (s *Server) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
}

func (s *Server) showLogin(c *gin.Context) {
	s.renderer.HTML(c, http.StatusOK, "login.html", nil)
}

func (s *Server) handleLogin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if err := s.users.Authenticate(username, password); err != nil {
		s.logger.Info("sign in rejected", zap.String("username", username))
		s.renderer.HTML(c, http.StatusUnauthorized, "login.html", pongo2.Context{
			"Error":    "Invalid username or password",
			"Username": username,
		})
		return
	}

	token, err := s.sessions.Issue(username)
	if err != nil {
		s.logger.Error("failed to issue session", zap.Error(err))
		c.String(http.StatusInternalServerError, "could not start session")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(s.ttl.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/projects")
}

func (s *Server) handleLogout(c *gin.Context) {
	s.clearSession(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

type appSummary struct {
	Name  string
	Cards int
}

type columnView struct {
	Heading string
	Cards   []Card
}

func (s *Server) workspace(c *gin.Context, title string) pongo2.Context {
	return pongo2.Context{
		"Title": title,
		"Apps":  s.board.AppNames(),
		"User":  c.GetString(userKey),
	}
}

func (s *Server) showProjects(c *gin.Context) {
	summaries := make([]appSummary, len(s.board.Apps))
	for i, a := range s.board.Apps {
		summaries[i] = appSummary{Name: a.Name, Cards: a.CardCount()}
	}
	data := s.workspace(c, "Projects")
	data["Summaries"] = summaries
	s.renderer.HTML(c, http.StatusOK, "projects.html", data)
}

func (s *Server) showBoard(c *gin.Context) {
	name := c.Query("app")
	app := s.board.App(name)
	if app == nil {
		data := s.workspace(c, "Not found")
		data["Missing"] = name
		s.renderer.HTML(c, http.StatusNotFound, "notfound.html", data)
		return
	}

	columns := make([]columnView, len(app.Columns))
	for i, col := range app.Columns {
		columns[i] = columnView{Heading: col.Heading(), Cards: col.Cards}
	}
	data := s.workspace(c, app.Name)
	data["Columns"] = columns
	s.renderer.HTML(c, http.StatusOK, "board.html", data)
}
