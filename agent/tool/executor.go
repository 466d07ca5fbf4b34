package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	callcenterx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/callcenter"
)

const DefaultCustomerID = "1001"

// User-facing failure texts.
const (
	MsgTimeout          = "API zaman aşımı"
	MsgConnection       = "API bağlantı hatası"
	MsgCanceled         = "İstek iptal edildi"
	MsgCustomerNotFound = "Müşteri bulunamadı"
	MsgInvalidPackage   = "Geçersiz paket adı"
	MsgBillNotFound     = "Fatura bulunamadı"
	MsgBillAlreadyPaid  = "Fatura zaten ödenmiş"
	MsgAmountMismatch   = "Tutar uyuşmuyor"
	MsgBillPaid         = "Fatura başarıyla ödendi"
	MsgPackageChanged   = "Paket değişikliği tamamlandı"
	MsgRoutingOnly      = "Yönlendirme aracı doğrudan çalıştırılamaz"
)

// Backend is the subset of the call-center API the executor drives.
type Backend interface {
	GetUserInfo(ctx context.Context, customerID string) (callcenterx.UserInfo, error)
	GetAvailablePackages(ctx context.Context, customerID string) ([]callcenterx.Package, error)
	ChangePackage(ctx context.Context, customerID, newPackage string) (string, error)
	GetBillingInfo(ctx context.Context, customerID string) ([]callcenterx.Bill, error)
	GetUsageStats(ctx context.Context, customerID string) (callcenterx.Usage, error)
	PayBill(ctx context.Context, customerID, month string, amount float64) (string, error)
}

var _ contractx.ToolExecutor = (*Executor)(nil)

type Executor struct {
	registry          *Registry
	backend           Backend
	sink              contractx.LogSink
	defaultCustomerID string
	now               func() time.Time
}

type ExecutorOption func(*Executor)

// WithDefaultCustomerID sets the id used by get_available_packages when the
// session has none bound.
func WithDefaultCustomerID(id string) ExecutorOption {
	return func(e *Executor) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			e.defaultCustomerID = trimmed
		}
	}
}

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

func NewExecutor(registry *Registry, backend Backend, sink contractx.LogSink, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:          registry,
		backend:           backend,
		sink:              sink,
		defaultCustomerID: DefaultCustomerID,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// failure carries the user-facing text and the diagnostic kept in the
// invocation record.
type failure struct {
	message string
	detail  string
	cause   error
}

func (f *failure) Error() string {
	return f.detail
}

func (f *failure) Unwrap() error {
	return f.cause
}

// Execute runs one backend operation and always records one invocation.
func (e *Executor) Execute(ctx context.Context, sessionID, toolName string, params map[string]any) (string, bool) {
	start := e.now()
	args := copyParams(params)

	result, err := e.run(ctx, toolName, args)
	success := err == nil
	var detail string
	if err != nil {
		var f *failure
		if errors.As(err, &f) {
			result, detail = f.message, f.detail
		} else {
			result, detail = "Sistem hatası: "+err.Error(), err.Error()
		}
	}

	elapsed := e.now().Sub(start)
	e.record(ctx, contractx.ToolInvocation{
		SessionID:  sessionID,
		ToolName:   toolName,
		Parameters: args,
		Result:     result,
		Success:    success,
		Duration:   elapsed,
		Error:      detail,
		Timestamp:  start,
	})

	if errors.Is(err, callcenterx.ErrCanceled) {
		log.Info().
			Str("session_id", sessionID).
			Str("tool", toolName).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("tool call canceled by caller")
		return result, success
	}

	log.Info().
		Str("session_id", sessionID).
		Str("tool", toolName).
		Bool("success", success).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg("tool executed")

	return result, success
}

func (e *Executor) run(ctx context.Context, toolName string, args map[string]any) (string, error) {
	def, ok := e.registry.Tool(toolName)
	if !ok {
		return "", &failure{message: "Bilinmeyen araç: " + toolName, detail: contractx.ErrUnknownTool.Error()}
	}
	if toolName == e.registry.RoutingTool() {
		return "", &failure{message: MsgRoutingOnly, detail: "routing tool has no backend operation"}
	}

	if toolName == GetAvailablePackages && StringParam(args, ParamCustomerID) == "" {
		args[ParamCustomerID] = e.defaultCustomerID
	}
	coerce(def, args)

	if err := validate(def, args); err != nil {
		return "", &failure{message: "Parametre hatası: " + err.Error(), detail: err.Error()}
	}

	out, err := e.dispatch(ctx, toolName, args)
	if err != nil {
		return "", classify(toolName, err)
	}
	return out, nil
}

func (e *Executor) dispatch(ctx context.Context, toolName string, args map[string]any) (string, error) {
	customerID := StringParam(args, ParamCustomerID)

	switch toolName {
	case GetUserInfo:
		info, err := e.backend.GetUserInfo(ctx, customerID)
		if err != nil {
			return "", err
		}
		return renderUserInfo(info), nil
	case GetAvailablePackages:
		packages, err := e.backend.GetAvailablePackages(ctx, customerID)
		if err != nil {
			return "", err
		}
		return renderPackages(packages), nil
	case ChangePackage:
		msg, err := e.backend.ChangePackage(ctx, customerID, StringParam(args, "new_package"))
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(msg) == "" {
			return MsgPackageChanged, nil
		}
		return msg, nil
	case GetBillingInfo:
		bills, err := e.backend.GetBillingInfo(ctx, customerID)
		if err != nil {
			return "", err
		}
		return renderBills(bills), nil
	case GetUsageStats:
		usage, err := e.backend.GetUsageStats(ctx, customerID)
		if err != nil {
			return "", err
		}
		return renderUsage(usage), nil
	case PayBill:
		amount, _ := args["amount"].(float64)
		if _, err := e.backend.PayBill(ctx, customerID, StringParam(args, "month"), amount); err != nil {
			return "", err
		}
		return MsgBillPaid, nil
	default:
		return "", &failure{message: "Bilinmeyen araç: " + toolName, detail: "no backend operation for tool"}
	}
}

// statusMessages maps backend rejections per tool; 422 is handled for every tool.
var statusMessages = map[string]map[int]string{
	GetUserInfo:          {http.StatusNotFound: MsgCustomerNotFound},
	GetAvailablePackages: {http.StatusNotFound: MsgCustomerNotFound},
	GetBillingInfo:       {http.StatusNotFound: MsgCustomerNotFound},
	GetUsageStats:        {http.StatusNotFound: MsgCustomerNotFound},
	ChangePackage: {
		http.StatusNotFound:   MsgCustomerNotFound,
		http.StatusBadRequest: MsgInvalidPackage,
	},
	PayBill: {
		http.StatusNotFound:   MsgBillNotFound,
		http.StatusConflict:   MsgBillAlreadyPaid,
		http.StatusBadRequest: MsgAmountMismatch,
	},
}

func classify(toolName string, err error) error {
	switch {
	case errors.Is(err, callcenterx.ErrCanceled):
		return &failure{message: MsgCanceled, detail: err.Error(), cause: err}
	case errors.Is(err, callcenterx.ErrTimeout):
		return &failure{message: MsgTimeout, detail: err.Error(), cause: err}
	case errors.Is(err, callcenterx.ErrUnavailable):
		return &failure{message: MsgConnection, detail: err.Error(), cause: err}
	}

	var apiErr *callcenterx.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if msg, ok := statusMessages[toolName][apiErr.StatusCode]; ok {
		return &failure{message: msg, detail: apiErr.Error()}
	}
	if apiErr.StatusCode == http.StatusUnprocessableEntity {
		return &failure{message: "Parametre hatası: " + apiErr.Detail, detail: apiErr.Error()}
	}
	return &failure{message: fmt.Sprintf("API hatası: %d", apiErr.StatusCode), detail: apiErr.Error()}
}

func (e *Executor) record(ctx context.Context, inv contractx.ToolInvocation) {
	if e.sink == nil {
		return
	}
	// A canceled turn still leaves its invocation row.
	if err := e.sink.LogToolUsage(context.WithoutCancel(ctx), inv); err != nil {
		log.Warn().Err(err).Str("tool", inv.ToolName).Msg("failed to log tool usage")
	}
}

func validate(def Definition, args map[string]any) error {
	if def.Schema() == nil {
		return nil
	}
	result, err := def.Schema().Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}
	return fmt.Errorf("%w: %s", contractx.ErrValidation, strings.Join(problems, "; "))
}

func copyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
