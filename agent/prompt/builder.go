// Package prompt assembles the completion messages for the dispatcher and
// specialist layers from embedded Go templates.
package prompt

import (
	"context"
	"embed"
	"fmt"
	"maps"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
)

//go:embed template/*.tmpl
var templateFS embed.FS

const (
	keyHistory      = "history"
	keyCustomerNote = "CustomerNote"

	customerNoteBlock = "{{with .CustomerNote}}{{.}}\n\n{{end}}"
)

// Builder holds one chat template per layer. The dispatcher is keyed by the
// empty specialist id.
type Builder struct {
	layers map[string]layer
}

type layer struct {
	template einoprompt.ChatTemplate
	vars     map[string]any
}

type specialistView struct {
	ID          string
	Name        string
	Description string
	Summary     string
}

type toolView struct {
	Name        string
	Description string
	Params      string
}

func NewBuilder(registry *toolx.Registry) (*Builder, error) {
	dispatcher, err := newTemplate("dispatcher.tmpl")
	if err != nil {
		return nil, err
	}
	specialist, err := newTemplate("specialist.tmpl")
	if err != nil {
		return nil, err
	}

	specs := registry.Specialists()
	views := make([]specialistView, 0, len(specs))
	for _, spec := range specs {
		views = append(views, viewOf(spec))
	}

	b := &Builder{layers: make(map[string]layer, len(specs)+1)}
	b.layers[""] = layer{
		template: dispatcher,
		vars: map[string]any{
			"RoutingTool": registry.RoutingTool(),
			"Specialists": views,
		},
	}
	for _, spec := range specs {
		defs := registry.ToolsFor(spec.ID)
		tools := make([]toolView, 0, len(defs))
		for _, def := range defs {
			tools = append(tools, toolView{Name: def.Name, Description: def.Description, Params: renderParams(def)})
		}
		b.layers[spec.ID] = layer{
			template: specialist,
			vars: map[string]any{
				"RoutingTool": registry.RoutingTool(),
				"Specialist":  viewOf(spec),
				"Tools":       tools,
				"Specialists": views,
			},
		}
	}

	// Render every layer once so a broken template fails at startup.
	for id := range b.layers {
		if _, err := b.System(context.Background(), id, ""); err != nil {
			if id == "" {
				id = "dispatcher"
			}
			return nil, fmt.Errorf("render %s prompt: %w", id, err)
		}
	}
	return b, nil
}

func MustNewBuilder(registry *toolx.Registry) *Builder {
	b, err := NewBuilder(registry)
	if err != nil {
		panic(err)
	}
	return b
}

// Messages formats the system prompt of the given layer followed by history.
// An empty specialist id selects the dispatcher; a bound customer id is
// announced ahead of the instructions.
func (b *Builder) Messages(ctx context.Context, specialistID, customerID string, history []*schema.Message) ([]*schema.Message, error) {
	l, ok := b.layers[specialistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownSpecialist, specialistID)
	}

	vars := maps.Clone(l.vars)
	vars[keyCustomerNote] = ""
	if customerID = strings.TrimSpace(customerID); customerID != "" {
		vars[keyCustomerNote] = CustomerNote(customerID)
	}
	if history == nil {
		history = []*schema.Message{}
	}
	vars[keyHistory] = history

	msgs, err := l.template.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return msgs, nil
}

// System returns only the system prompt text of a layer.
func (b *Builder) System(ctx context.Context, specialistID, customerID string) (string, error) {
	msgs, err := b.Messages(ctx, specialistID, customerID, nil)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 || msgs[0].Role != schema.System {
		return "", fmt.Errorf("prompt for %q has no system message", specialistID)
	}
	return msgs[0].Content, nil
}

func CustomerNote(customerID string) string {
	return fmt.Sprintf("Sistem notu: Mevcut müşterinin ID'si %s olarak belirlenmiştir. Araç çağrılarında bu ID'yi kullan.", customerID)
}

// ToolResultRequest is the user turn of the synthesis call.
func ToolResultRequest(toolName, result string) string {
	return fmt.Sprintf("Araç '%s' sonucu: %s\n\nBu sonucu kullanarak müşteriye kısa ve net bir yanıt ver.", toolName, result)
}

func newTemplate(name string) (einoprompt.ChatTemplate, error) {
	body, err := templateFS.ReadFile("template/" + name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return einoprompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(customerNoteBlock+strings.TrimSpace(string(body))),
		schema.MessagesPlaceholder(keyHistory, true),
	), nil
}

func viewOf(spec toolx.Specialist) specialistView {
	return specialistView{
		ID:          spec.ID,
		Name:        spec.Name,
		Description: spec.Description,
		Summary:     oneLine(spec.Description),
	}
}

func oneLine(text string) string {
	fields := strings.Fields(strings.ReplaceAll(text, "\n", " "))
	return strings.Join(fields, " ")
}

func renderParams(def toolx.Definition) string {
	if len(def.Params) == 0 {
		return "yok"
	}
	parts := make([]string, 0, len(def.Params))
	for _, p := range def.Params {
		part := fmt.Sprintf("%s: %s - %s", p.Name, p.Type, p.Description)
		if len(p.Enum) > 0 {
			part += " (" + strings.Join(p.Enum, ", ") + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
