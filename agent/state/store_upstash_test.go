package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

func newTestUpstash(t *testing.T, handler http.HandlerFunc, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: server.URL, Token: "token"}, opts...)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "callcenter:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "callcenter:session:abc")
	}

	if _, err := store.redisKey("   "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestNewUpstashRedisStoreRequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisStore(UpstashRedisConfig{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "https://example.upstash.io"}); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if (UpstashRedisConfig{}).Enabled() {
		t.Fatalf("empty config must not be enabled")
	}
}

func TestUpstashRedisStoreSave(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	var gotAuth string
	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}, WithTTL(90*time.Second), WithKeyPrefix("test:"))

	sess := NewSession("session-1", "1001", time.Now())
	sess.Append(contractx.RoleUser, "fatura", time.Now())
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if gotAuth != "Bearer token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" || gotCommand[1] != "test:session-1" {
		t.Fatalf("unexpected command head: %#v", gotCommand[:2])
	}
	if gotCommand[3] != "EX" || gotCommand[4] != float64(90) {
		t.Fatalf("unexpected expiry: %#v", gotCommand[3:])
	}

	var saved Session
	if err := json.Unmarshal([]byte(gotCommand[2].(string)), &saved); err != nil {
		t.Fatalf("payload is not a session: %v", err)
	}
	if saved.CustomerID != "1001" || len(saved.History) != 1 {
		t.Fatalf("unexpected payload %+v", saved)
	}
}

func TestUpstashRedisStoreLoad(t *testing.T) {
	t.Parallel()

	seed := NewSession("session-2", "1002", time.Now())
	if err := seed.EnterSpecialist("billing", time.Now()); err != nil {
		t.Fatalf("EnterSpecialist() error = %v", err)
	}
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	})

	sess, err := store.Load(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess.Layer != LayerSpecialist || sess.ActiveSpecialist != "billing" || sess.CustomerID != "1002" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if gotCommand[0] != "GET" || gotCommand[1] != "callcenter:session:session-2" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestUpstashRedisStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	})

	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestUpstashRedisStoreDelete(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	})

	if err := store.Delete(context.Background(), "session-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if gotCommand[0] != "DEL" || gotCommand[1] != "callcenter:session:session-3" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestUpstashRedisStoreSurfacesErrors(t *testing.T) {
	t.Parallel()

	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
	})

	if err := store.Save(context.Background(), NewSession("s", "", time.Now())); err == nil {
		t.Fatalf("expected redis error")
	}
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilSession) {
		t.Fatalf("expected ErrNilSession, got %v", err)
	}
}

func TestUpstashRedisStoreHTTPStatus(t *testing.T) {
	t.Parallel()

	store := newTestUpstash(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := store.Load(context.Background(), "session-4")
	var upstashErr *UpstashError
	if !errors.As(err, &upstashErr) {
		t.Fatalf("expected *UpstashError, got %v", err)
	}
	if upstashErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", upstashErr.StatusCode)
	}
}

func TestUpstashRedisConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (UpstashRedisConfig{}).Validate(); err != nil {
		t.Fatalf("disabled config must validate, got %v", err)
	}
	if err := (UpstashRedisConfig{URL: "https://example.upstash.io"}).Validate(); err == nil {
		t.Fatalf("expected missing token error")
	}
	if err := (UpstashRedisConfig{URL: "https://example.upstash.io", Token: "t", TTL: -time.Second}).Validate(); err == nil {
		t.Fatalf("expected negative ttl error")
	}
	if got := expirySeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("expirySeconds(1.5s) = %d, want 2", got)
	}
	if got := expirySeconds(time.Millisecond); got != 1 {
		t.Fatalf("expirySeconds(1ms) = %d, want 1", got)
	}
}
