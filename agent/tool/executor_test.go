package tool

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	callcenterx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/callcenter"
)

type recordingSink struct {
	mu          sync.Mutex
	invocations []contractx.ToolInvocation
	failWith    error
}

func (s *recordingSink) CreateSession(context.Context, string, string) (string, error) {
	return "s-1", nil
}
func (s *recordingSink) AddMessage(context.Context, contractx.MessageRecord) error { return nil }
func (s *recordingSink) EndSession(context.Context, contractx.SessionEnd) error    { return nil }
func (s *recordingSink) LogError(context.Context, contractx.ErrorRecord) error     { return nil }

func (s *recordingSink) LogToolUsage(_ context.Context, inv contractx.ToolInvocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invocations = append(s.invocations, inv)
	return s.failWith
}

func (s *recordingSink) last(t *testing.T) contractx.ToolInvocation {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.invocations) == 0 {
		t.Fatalf("no invocation recorded")
	}
	return s.invocations[len(s.invocations)-1]
}

func newExecutor(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Executor, *recordingSink) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sink := &recordingSink{}
	backend := callcenterx.MustNew(callcenterx.Config{URL: srv.URL, Timeout: timeout})
	return NewExecutor(MustLoadRegistry(), backend, sink), sink
}

func TestExecuteGetUserInfo(t *testing.T) {
	t.Parallel()

	exec, sink := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getUserInfo/1001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"name":"Ahmet Yılmaz","package":"Gold","balance":150}}`))
	}, time.Second)

	// numeric id from the model is coerced to a string
	result, ok := exec.Execute(context.Background(), "s-1", GetUserInfo, map[string]any{"customer_id": 1001.0})
	if !ok {
		t.Fatalf("expected success, got %q", result)
	}
	if result != "Müşteri: Ahmet Yılmaz, Paket: Gold, Bakiye: 150.00 TL" {
		t.Fatalf("unexpected result %q", result)
	}

	inv := sink.last(t)
	if !inv.Success || inv.ToolName != GetUserInfo || inv.SessionID != "s-1" {
		t.Fatalf("unexpected invocation %+v", inv)
	}
	if inv.Parameters["customer_id"] != "1001" {
		t.Fatalf("parameters not coerced: %#v", inv.Parameters)
	}
}

func TestExecuteGetUserInfoNotFound(t *testing.T) {
	t.Parallel()

	exec, sink := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Customer not found"}`))
	}, time.Second)

	result, ok := exec.Execute(context.Background(), "s-1", GetUserInfo, map[string]any{"customer_id": "9999"})
	if ok || result != MsgCustomerNotFound {
		t.Fatalf("unexpected outcome (%q, %v)", result, ok)
	}
	inv := sink.last(t)
	if inv.Success || inv.Error == "" {
		t.Fatalf("failure must be recorded with detail: %+v", inv)
	}
}

func TestExecutePayBillStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		body   string
		want   string
	}{
		{status: http.StatusNotFound, body: `{"detail":"Bill not found"}`, want: MsgBillNotFound},
		{status: http.StatusConflict, body: `{"detail":"Bill already paid"}`, want: MsgBillAlreadyPaid},
		{status: http.StatusBadRequest, body: `{"detail":"Amount mismatch"}`, want: MsgAmountMismatch},
		{status: http.StatusUnprocessableEntity, body: `{"detail":"month invalid"}`, want: "Parametre hatası: month invalid"},
		{status: http.StatusServiceUnavailable, body: `oops`, want: "API hatası: 503"},
	}

	for _, tc := range cases {
		exec, _ := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}, time.Second)

		result, ok := exec.Execute(context.Background(), "s-1", PayBill, map[string]any{
			"customer_id": "1001", "month": "2025-07", "amount": 150.0,
		})
		if ok || result != tc.want {
			t.Fatalf("status %d: got (%q, %v), want %q", tc.status, result, ok, tc.want)
		}
	}
}

func TestExecutePayBillSuccess(t *testing.T) {
	t.Parallel()

	exec, sink := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["customer_id"] != "1001" || body["month"] != "2025-07" || body["amount"] != 150.0 {
			t.Errorf("unexpected payload %v", body)
		}
		_, _ = w.Write([]byte(`{"status":"success","message":"Payment processed"}`))
	}, time.Second)

	result, ok := exec.Execute(context.Background(), "s-1", PayBill, map[string]any{
		"customer_id": "1001", "month": "2025-07", "amount": "150,00",
	})
	if !ok || result != MsgBillPaid {
		t.Fatalf("unexpected outcome (%q, %v)", result, ok)
	}
	if sink.last(t).Parameters["amount"] != 150.0 {
		t.Fatalf("amount not coerced")
	}
}

func TestExecuteValidationSkipsBackend(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	exec, sink := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, time.Second)

	cases := []map[string]any{
		{"customer_id": "1001", "month": "temmuz", "amount": 150.0},
		{"customer_id": "1001", "month": "2025-07"},
		{"customer_id": "1001", "month": "2025-07", "amount": "yüz elli"},
	}
	for _, params := range cases {
		result, ok := exec.Execute(context.Background(), "s-1", PayBill, params)
		if ok || !strings.HasPrefix(result, "Parametre hatası: ") {
			t.Fatalf("params %v: unexpected outcome (%q, %v)", params, result, ok)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("backend must not be called on validation failure")
	}
	if !strings.Contains(sink.last(t).Error, contractx.ErrValidation.Error()) {
		t.Fatalf("validation detail not recorded: %q", sink.last(t).Error)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	exec, sink := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {}, time.Second)

	result, ok := exec.Execute(context.Background(), "s-1", "delete_account", nil)
	if ok || result != "Bilinmeyen araç: delete_account" {
		t.Fatalf("unexpected outcome (%q, %v)", result, ok)
	}
	if sink.last(t).ToolName != "delete_account" {
		t.Fatalf("unknown tool attempt must still be recorded")
	}
}

func TestExecuteTimeoutAndConnection(t *testing.T) {
	t.Parallel()

	exec, _ := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 20*time.Millisecond)

	result, ok := exec.Execute(context.Background(), "s-1", GetUsageStats, map[string]any{"customer_id": "1001"})
	if ok || result != MsgTimeout {
		t.Fatalf("unexpected timeout outcome (%q, %v)", result, ok)
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	closed := NewExecutor(MustLoadRegistry(), callcenterx.MustNew(callcenterx.Config{URL: url, Timeout: time.Second}), nil)

	result, ok = closed.Execute(context.Background(), "s-1", GetUsageStats, map[string]any{"customer_id": "1001"})
	if ok || result != MsgConnection {
		t.Fatalf("unexpected connection outcome (%q, %v)", result, ok)
	}
}

func TestExecuteCanceledIsNotAnOutage(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	exec, sink := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	result, ok := exec.Execute(ctx, "s-1", GetUsageStats, map[string]any{"customer_id": "1001"})
	if ok || result != MsgCanceled {
		t.Fatalf("unexpected canceled outcome (%q, %v)", result, ok)
	}
	inv := sink.last(t)
	if inv.Success || inv.Result != MsgCanceled || !strings.Contains(inv.Error, "canceled") {
		t.Fatalf("unexpected invocation %+v", inv)
	}
}

func TestExecuteRendersListsAndDefaults(t *testing.T) {
	t.Parallel()

	exec, _ := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getAvailablePackages/1001":
			_, _ = w.Write([]byte(`{"status":"success","data":{"Silver":{"price":100,"features":["10GB","1000 dk"]},"Bronze":{"price":50,"features":["5GB"]}}}`))
		case "/getBillingInfo/1001":
			_, _ = w.Write([]byte(`{"status":"success","data":{"bills":[{"month":"2025-06","amount":120,"paid":true},{"month":"2025-07","amount":150,"paid":false}]}}`))
		case "/getUsageStats/1001":
			_, _ = w.Write([]byte(`{"status":"success","data":{"calls":320,"data_mb":5120,"sms":45}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}, time.Second)

	ctx := context.Background()

	packages, ok := exec.Execute(ctx, "s-1", GetAvailablePackages, map[string]any{})
	if !ok || packages != "Mevcut paketler:\nBronze: 50.00 TL - 5GB\nSilver: 100.00 TL - 10GB, 1000 dk" {
		t.Fatalf("unexpected packages %q", packages)
	}

	bills, ok := exec.Execute(ctx, "s-1", GetBillingInfo, map[string]any{"customer_id": "1001"})
	if !ok || bills != "Fatura bilgileri:\n2025-06: 120.00 TL - Ödendi\n2025-07: 150.00 TL - Ödenmedi" {
		t.Fatalf("unexpected bills %q", bills)
	}

	usage, ok := exec.Execute(ctx, "s-1", GetUsageStats, map[string]any{"customer_id": "1001"})
	if !ok || usage != "Kullanım: 320 dakika arama, 5.0 GB internet, 45 SMS" {
		t.Fatalf("unexpected usage %q", usage)
	}
}

func TestExecuteSwallowsSinkErrors(t *testing.T) {
	t.Parallel()

	exec, sink := newExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","message":"Paket değiştirildi"}`))
	}, time.Second)
	sink.failWith = errors.New("disk full")

	result, ok := exec.Execute(context.Background(), "s-1", ChangePackage, map[string]any{
		"customer_id": "1001", "new_package": "Gold",
	})
	if !ok || result != "Paket değiştirildi" {
		t.Fatalf("unexpected outcome (%q, %v)", result, ok)
	}
}
