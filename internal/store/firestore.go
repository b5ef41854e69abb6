package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/logic"
)

// Default Google endpoints.
const (
	DefaultFirestoreURL = "https://firestore.googleapis.com"
	DefaultAuthURL      = "https://identitytoolkit.googleapis.com"
	DefaultTokenURL     = "https://securetoken.googleapis.com"
)

// tokenSlack is how long before expiry the ID token is refreshed.
const tokenSlack = time.Minute

// FirestoreConfig holds project and user credentials.
type FirestoreConfig struct {
	APIKey    string
	ProjectID string
	Email     string
	Password  string

	// Endpoint overrides, mostly for tests and the emulator.
	BaseURL  string
	AuthURL  string
	TokenURL string

	Timeout time.Duration
}

// Firestore writes documents through the Firestore REST API, signing in with
// email and password.
type Firestore struct {
	cfg    FirestoreConfig
	client *resty.Client
	log    *zap.Logger
	now    func() time.Time

	mu           sync.RWMutex
	uid          string
	idToken      string
	refreshToken string
	expiry       time.Time
}

// NewFirestore creates a Firestore store. Nothing is sent until Authenticate.
func NewFirestore(cfg FirestoreConfig, log *zap.Logger) *Firestore {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFirestoreURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Firestore{
		cfg:    cfg,
		client: client,
		log:    log,
		now:    time.Now,
	}
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (e *apiError) detail(resp *resty.Response) string {
	if e != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return resp.Status()
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// Authenticate signs in with email and password and records the user UID.
func (f *Firestore) Authenticate(ctx context.Context) error {
	var result signInResponse
	var apiErr apiError

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("key", f.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"email":             f.cfg.Email,
			"password":          f.cfg.Password,
			"returnSecureToken": true,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(f.cfg.AuthURL + "/v1/accounts:signInWithPassword")
	if err != nil {
		return fmt.Errorf("firestore sign-in: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("firestore sign-in: %s", apiErr.detail(resp))
	}
	if result.LocalID == "" || result.IDToken == "" {
		return fmt.Errorf("firestore sign-in: empty user uid")
	}

	f.setToken(result.LocalID, result.IDToken, result.RefreshToken, result.ExpiresIn)
	f.log.Info("firestore signed in", zap.String("uid", result.LocalID))
	return nil
}

func (f *Firestore) setToken(uid, idToken, refreshToken, expiresIn string) {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if uid != "" {
		f.uid = uid
	}
	f.idToken = idToken
	if refreshToken != "" {
		f.refreshToken = refreshToken
	}
	f.expiry = f.now().Add(time.Duration(secs) * time.Second)
}

// Ready reports whether a user UID has been obtained.
func (f *Firestore) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.uid != "" && f.idToken != ""
}

// UID returns the signed-in user's UID, or "".
func (f *Firestore) UID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.uid
}

// token returns a valid ID token, refreshing it when close to expiry.
func (f *Firestore) token(ctx context.Context) (string, error) {
	f.mu.RLock()
	tok, refresh, expiry := f.idToken, f.refreshToken, f.expiry
	f.mu.RUnlock()

	if f.now().Add(tokenSlack).Before(expiry) || refresh == "" {
		return tok, nil
	}

	var result refreshResponse
	var apiErr apiError
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("key", f.cfg.APIKey).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refresh,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(f.cfg.TokenURL + "/v1/token")
	if err != nil {
		return "", fmt.Errorf("firestore token refresh: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("firestore token refresh: %s", apiErr.detail(resp))
	}

	f.setToken(result.UserID, result.IDToken, result.RefreshToken, result.ExpiresIn)
	f.log.Debug("firestore token refreshed")
	return result.IDToken, nil
}

// documentsURL returns the REST URL of a collection path.
func (f *Firestore) documentsURL(collection string) string {
	segs := strings.Split(collection, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/v1/projects/%s/databases/(default)/documents/%s",
		f.cfg.BaseURL, url.PathEscape(f.cfg.ProjectID), strings.Join(segs, "/"))
}

// EncodeFirestore returns the Firestore document body for rec. An empty
// timestamp is stored as a null value.
func EncodeFirestore(rec logic.Record) map[string]any {
	timeValue := map[string]any{"timestampValue": rec.Timestamp}
	if rec.Timestamp == "" {
		timeValue = map[string]any{"nullValue": nil}
	}
	return map[string]any{
		"fields": map[string]any{
			"macAddress": map[string]any{"stringValue": rec.DeviceID},
			"waterLevel": map[string]any{"integerValue": strconv.Itoa(rec.Raw)},
			"state":      map[string]any{"stringValue": rec.State},
			"time":       timeValue,
		},
	}
}

// Create creates the document at path. Firestore rejects existing ids with 409.
func (f *Firestore) Create(ctx context.Context, path string, rec logic.Record) error {
	if !f.Ready() {
		return ErrNotReady
	}
	collection, id, err := SplitPath(path)
	if err != nil {
		return fmt.Errorf("%w: %q", err, path)
	}

	tok, err := f.token(ctx)
	if err != nil {
		return err
	}

	var apiErr apiError
	resp, err := f.client.R().
		SetContext(ctx).
		SetAuthToken(tok).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("documentId", id).
		SetBody(EncodeFirestore(rec)).
		SetError(&apiErr).
		Post(f.documentsURL(collection))
	if err != nil {
		return fmt.Errorf("firestore create %s: %w", path, err)
	}

	switch {
	case resp.StatusCode() == http.StatusConflict:
		return fmt.Errorf("%w: %s: %s", ErrExists, path, apiErr.detail(resp))
	case resp.IsError():
		return fmt.Errorf("firestore create %s: %s", path, apiErr.detail(resp))
	}

	f.log.Debug("firestore document created", zap.String("path", path))
	return nil
}

// Close releases idle connections.
func (f *Firestore) Close() error {
	f.client.GetClient().CloseIdleConnections()
	return nil
}
