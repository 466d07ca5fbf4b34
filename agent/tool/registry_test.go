package tool

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

func TestLoadRegistry(t *testing.T) {
	t.Parallel()

	reg, err := LoadRegistry()
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}

	specs := reg.Specialists()
	wantIDs := []string{"billing", "package_management", "user_info", "general_inquiry"}
	if len(specs) != len(wantIDs) {
		t.Fatalf("expected %d specialists, got %d", len(wantIDs), len(specs))
	}
	for i, id := range wantIDs {
		if specs[i].ID != id {
			t.Fatalf("specialist %d = %s, want %s", i, specs[i].ID, id)
		}
		if !specs[i].Allows(RouteToSpecialist) {
			t.Fatalf("specialist %s must allow routing", id)
		}
	}

	billing, ok := reg.Specialist("billing")
	if !ok || billing.Name != "Fatura Uzmanı" {
		t.Fatalf("unexpected billing specialist: %+v", billing)
	}
	if _, ok := reg.Specialist("legal"); ok {
		t.Fatalf("unknown specialist must not resolve")
	}

	payBill, ok := reg.Tool(PayBill)
	if !ok {
		t.Fatalf("pay_bill missing")
	}
	if !payBill.Expects(ParamCustomerID) || payBill.Schema() == nil {
		t.Fatalf("pay_bill must declare customer_id and compile a schema")
	}

	route, _ := reg.Tool(RouteToSpecialist)
	if route.Expects(ParamCustomerID) {
		t.Fatalf("routing tool must not take customer_id")
	}

	tools := reg.ToolsFor("user_info")
	if len(tools) != 3 || tools[0].Name != GetUserInfo {
		t.Fatalf("unexpected user_info tools: %+v", tools)
	}
}

func TestSpecialistsReturnsCopy(t *testing.T) {
	t.Parallel()

	reg := MustLoadRegistry()
	specs := reg.Specialists()
	specs[0].ID = "mutated"

	if _, ok := reg.Specialist("billing"); !ok {
		t.Fatalf("registry mutated through returned slice")
	}
}

func TestParseRegistryRejectsInvalidCatalogs(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown tool reference": `
[[tools]]
name = "route_to_specialist"
[[specialists]]
id = "billing"
tools = ["route_to_specialist", "missing"]
`,
		"specialist without routing": `
[[tools]]
name = "route_to_specialist"
[[tools]]
name = "get_user_info"
[[specialists]]
id = "billing"
tools = ["get_user_info"]
`,
		"duplicate tool": `
[[tools]]
name = "route_to_specialist"
[[tools]]
name = "route_to_specialist"
`,
		"routing takes customer id": `
[[tools]]
name = "route_to_specialist"
  [[tools.params]]
  name = "customer_id"
  type = "string"
[[specialists]]
id = "billing"
tools = ["route_to_specialist"]
`,
		"unsupported param type": `
[[tools]]
name = "route_to_specialist"
  [[tools.params]]
  name = "specialist"
  type = "object"
`,
		"no specialists": `
[[tools]]
name = "route_to_specialist"
`,
		"broken toml": `[[tools`,
	}

	for name, raw := range cases {
		if _, err := ParseRegistry([]byte(raw)); !errors.Is(err, contractx.ErrCatalog) {
			t.Fatalf("%s: expected ErrCatalog, got %v", name, err)
		}
	}
}
