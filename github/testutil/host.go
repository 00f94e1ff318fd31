package testutil

import (
	"context"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Repo is a repository stored by the host.
type Repo struct {
	ID          int64   `json:"id"`
	NodeID      string  `json:"node_id"`
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	Homepage    string  `json:"homepage"`
	URL         string  `json:"url"`
	Owner       Owner   `json:"owner"`
}

// Owner is the owner block of a stored repository.
type Owner struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

type createRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Homepage    string  `json:"homepage"`
}

// Option configures a Host.
type Option func(*Host)

// WithBasic accepts the given username and password. Only a bcrypt hash of
// the password is kept.
func WithBasic(username, password string) Option {
	return func(h *Host) {
		h.username = username
		h.passwordHash, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	}
}

// WithToken accepts the given bearer token.
func WithToken(token string) Option {
	return func(h *Host) { h.token = token }
}

// WithLogin sets the login of the authenticated account. Defaults to the
// basic username, or "octocat".
func WithLogin(login string) Option {
	return func(h *Host) { h.login = login }
}

// WithApp serves installation access tokens for one installation of the
// app identified by appID. Only app tokens signed with the private half of
// key are exchanged, and only issued installation tokens are accepted on
// the repository endpoints.
func WithApp(appID int64, key *rsa.PublicKey, installationID int64) Option {
	return func(h *Host) {
		h.appID = strconv.FormatInt(appID, 10)
		h.appKey = key
		h.installationID = strconv.FormatInt(installationID, 10)
	}
}

// WithInstallationTokenTTL sets the lifetime of issued installation tokens.
// Defaults to one hour.
func WithInstallationTokenTTL(d time.Duration) Option {
	return func(h *Host) { h.tokenTTL = d }
}

// WithoutChallenge drops the WWW-Authenticate header from 401 responses.
func WithoutChallenge() Option {
	return func(h *Host) { h.noChallenge = true }
}

// Host is an in-memory repository host served over httptest.
type Host struct {
	username     string
	passwordHash []byte
	token        string
	login        string
	noChallenge  bool

	appID          string
	appKey         *rsa.PublicKey
	installationID string
	tokenTTL       time.Duration

	engine *gin.Engine
	ts     *httptest.Server

	mu          sync.Mutex
	repos       []*Repo
	nextID      int64
	deletes     map[string]int
	userLookups int
	lastCreate  []byte
	issued      map[string]time.Time
}

// NewHost builds a stopped host.
func NewHost(opts ...Option) *Host {
	h := &Host{
		deletes:  make(map[string]int),
		issued:   make(map[string]time.Time),
		tokenTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.login == "" {
		h.login = h.username
	}
	if h.login == "" {
		h.login = "octocat"
	}

	h.engine = gin.New()
	h.engine.Use(requestID())
	h.engine.GET("/", h.root)
	h.engine.POST("/app/installations/:id/access_tokens", h.issueInstallationToken)
	authed := h.engine.Group("/", h.authenticate)
	authed.GET("/user", h.currentUser)
	authed.GET("/user/repos", h.listRepos)
	authed.POST("/user/repos", h.createRepo)
	authed.DELETE("/repos/:owner/:name", h.deleteRepo)
	return h
}

// Start begins serving on a loopback port.
func (h *Host) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ts != nil {
		return fmt.Errorf("testutil: host already started")
	}
	h.ts = httptest.NewServer(h.engine)
	return nil
}

// Stop shuts the server down.
func (h *Host) Stop(_ context.Context) error {
	h.mu.Lock()
	ts := h.ts
	h.ts = nil
	h.mu.Unlock()
	if ts != nil {
		ts.Close()
	}
	return nil
}

// Reset forgets all repositories and counters.
func (h *Host) Reset(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.repos = nil
	h.nextID = 0
	h.deletes = make(map[string]int)
	h.userLookups = 0
	h.lastCreate = nil
	h.issued = make(map[string]time.Time)
	return nil
}

// URL returns the base URL, or "" before Start.
func (h *Host) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ts == nil {
		return ""
	}
	return h.ts.URL
}

// Login returns the authenticated account name.
func (h *Host) Login() string { return h.login }

// TokenIssues returns how many installation tokens were issued.
func (h *Host) TokenIssues() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.issued)
}

// Seed stores repositories owned by the login without going through HTTP.
func (h *Host) Seed(names ...string) []Repo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Repo, 0, len(names))
	for _, n := range names {
		out = append(out, *h.store(n, nil, ""))
	}
	return out
}

// Names returns the stored repository names in creation order.
func (h *Host) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.repos))
	for i, r := range h.repos {
		names[i] = r.Name
	}
	return names
}

// DeleteCount reports how many DELETE requests reached owner/name.
func (h *Host) DeleteCount(owner, name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deletes[owner+"/"+name]
}

// UserLookups reports how many times GET /user was served.
func (h *Host) UserLookups() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.userLookups
}

// LastCreateBody returns the raw body of the latest create request.
func (h *Host) LastCreateBody() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.lastCreate...)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func (h *Host) authenticate(c *gin.Context) {
	if h.authorized(c.GetHeader("Authorization")) {
		c.Next()
		return
	}
	if !h.noChallenge {
		c.Header("WWW-Authenticate", `Basic realm="GitHub"`)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Bad credentials"})
}

func (h *Host) authorized(header string) bool {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok {
		return false
	}
	switch {
	case strings.EqualFold(scheme, "bearer"):
		if h.token != "" && subtle.ConstantTimeCompare([]byte(value), []byte(h.token)) == 1 {
			return true
		}
		return h.installationTokenValid(value)
	case strings.EqualFold(scheme, "basic") && h.username != "":
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return false
		}
		user, pass, ok := strings.Cut(string(raw), ":")
		if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(h.username)) != 1 {
			return false
		}
		return bcrypt.CompareHashAndPassword(h.passwordHash, []byte(pass)) == nil
	}
	return false
}

func (h *Host) installationTokenValid(token string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	exp, ok := h.issued[token]
	return ok && time.Now().Before(exp)
}

// issueInstallationToken exchanges a valid RS256 app token for a fresh
// installation token.
func (h *Host) issueInstallationToken(c *gin.Context) {
	if h.appKey == nil || c.Param("id") != h.installationID {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
		return
	}
	scheme, signed, _ := strings.Cut(c.GetHeader("Authorization"), " ")
	_, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return h.appKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuer(h.appID), jwt.WithExpirationRequired())
	if !strings.EqualFold(scheme, "bearer") || err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "A JSON web token could not be decoded"})
		return
	}

	token := "ghs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	exp := time.Now().Add(h.tokenTTL).UTC().Truncate(time.Second)
	h.mu.Lock()
	h.issued[token] = exp
	h.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"token": token, "expires_at": exp.Format(time.RFC3339)})
}

func (h *Host) root(c *gin.Context) {
	base := "http://" + c.Request.Host
	c.JSON(http.StatusOK, gin.H{
		"current_user_url":              base + "/user",
		"current_user_repositories_url": base + "/user/repos",
		"repository_url":                base + "/repos/{owner}/{repo}",
	})
}

func (h *Host) currentUser(c *gin.Context) {
	h.mu.Lock()
	h.userLookups++
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"login": h.login, "id": 1})
}

func (h *Host) listRepos(c *gin.Context) {
	h.mu.Lock()
	out := make([]Repo, 0, len(h.repos))
	for _, r := range h.repos {
		out = append(out, *r)
	}
	h.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (h *Host) createRepo(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Problems parsing JSON"})
		return
	}
	h.mu.Lock()
	h.lastCreate = body
	h.mu.Unlock()

	var req createRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Validation Failed", "error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.find(req.Name) >= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Repository creation failed.",
			"errors":  []gin.H{{"resource": "Repository", "field": "name", "message": "name already exists on this account"}},
		})
		return
	}
	r := h.store(req.Name, req.Description, req.Homepage)
	c.JSON(http.StatusCreated, r)
}

func (h *Host) deleteRepo(c *gin.Context) {
	owner, name := c.Param("owner"), c.Param("name")

	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes[owner+"/"+name]++
	i := h.find(name)
	if owner != h.login || i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
		return
	}
	h.repos = append(h.repos[:i], h.repos[i+1:]...)
	c.Status(http.StatusNoContent)
}

// find returns the index of name, or -1. Callers hold mu.
func (h *Host) find(name string) int {
	for i, r := range h.repos {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// store appends a repository. Callers hold mu.
func (h *Host) store(name string, description *string, homepage string) *Repo {
	h.nextID++
	base := ""
	if h.ts != nil {
		base = h.ts.URL
	}
	if base == "" {
		base = "http://localhost"
	}
	r := &Repo{
		ID:          h.nextID,
		NodeID:      uuid.NewString(),
		Name:        name,
		FullName:    h.login + "/" + name,
		Description: description,
		Homepage:    homepage,
		URL:         base + "/repos/" + h.login + "/" + name,
		Owner:       Owner{Login: h.login, ID: 1},
	}
	h.repos = append(h.repos, r)
	return r
}
