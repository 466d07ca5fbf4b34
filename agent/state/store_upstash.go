package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultStoreKeyPrefix = "callcenter:session:"
	defaultStoreTTL       = 24 * time.Hour
	defaultStoreTimeout   = 10 * time.Second
	maxResponseSizeBytes  = 2 << 20
)

// UpstashRedisConfig is optional: an empty URL selects the in-memory store.
type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

func (c UpstashRedisConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func (c UpstashRedisConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(c.URL)); err != nil {
		return fmt.Errorf("invalid upstash redis url: %w", err)
	}
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("upstash redis token is required")
	}
	if c.TTL < 0 {
		return errors.New("upstash redis ttl must be >= 0")
	}
	return nil
}

// UpstashError is a failure reported by the Upstash REST endpoint, either as
// a non-2xx status or as an error field in the body.
type UpstashError struct {
	StatusCode int
	Message    string
}

func (e *UpstashError) Error() string {
	return fmt.Sprintf("upstash redis: status=%d: %s", e.StatusCode, e.Message)
}

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		if p := strings.TrimSpace(prefix); p != "" {
			s.keyPrefix = p
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore keeps one JSON snapshot per session under
// <prefix><session id>, expiring after the configured TTL of inactivity.
type UpstashRedisStore struct {
	endpoint   string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	if !cfg.Enabled() {
		return nil, errors.New("upstash redis url is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	store := &UpstashRedisStore{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultStoreKeyPrefix,
		ttl:        defaultStoreTTL,
	}
	if cfg.TTL > 0 {
		store.ttl = cfg.TTL
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.command(ctx, "GET", key)
	if err != nil {
		return nil, err
	}

	var payload *string
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	if payload == nil {
		return nil, ErrStateNotFound
	}

	sess := new(Session)
	if err := json.Unmarshal([]byte(*payload), sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	if err := sess.Validate(nil); err != nil {
		return nil, fmt.Errorf("stored session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	key, err := s.redisKey(sess.SessionID)
	if err != nil {
		return err
	}

	snapshot := sess.Clone()
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.SessionID, err)
	}

	args := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		args = append(args, "EX", expirySeconds(s.ttl))
	}
	_, err = s.command(ctx, args...)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.command(ctx, "DEL", key)
	return err
}

func (s *UpstashRedisStore) redisKey(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrInvalidSession
	}
	return s.keyPrefix + sessionID, nil
}

// command posts one Redis command as a JSON array and returns the raw result.
func (s *UpstashRedisStore) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redis %v: %w", args[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	decodeErr := json.Unmarshal(raw, &out)

	switch {
	case out.Error != "":
		return nil, &UpstashError{StatusCode: resp.StatusCode, Message: out.Error}
	case resp.StatusCode/100 != 2:
		return nil, &UpstashError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	case decodeErr != nil:
		return nil, fmt.Errorf("decode redis response: %w", decodeErr)
	}
	if len(out.Result) == 0 {
		out.Result = json.RawMessage("null")
	}
	return out.Result, nil
}

// expirySeconds rounds ttl up to whole seconds, at least one.
func expirySeconds(ttl time.Duration) int64 {
	return int64(math.Max(1, math.Ceil(ttl.Seconds())))
}
