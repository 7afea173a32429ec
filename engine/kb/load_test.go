package kb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsEmpty(t *testing.T) {
	k := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	if !k.Empty() {
		t.Errorf("expected empty knowledge base, got %+v", k)
	}
}

func TestLoad_MalformedFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	k := Load(path, nil)
	if !k.Empty() {
		t.Errorf("expected empty knowledge base, got %+v", k)
	}
}

func TestLoad_DecodesAllSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	doc := `{
		"products":[{"name":"Desk Lamp","product_id":"P010","price":24.99,"rating":4.2}],
		"orders":[{"order_id":"ORD-1","order_status":"Processing"}],
		"policies":{"returns":{"title":"Returns","content":"30 days."}},
		"faqs":[{"category":"Billing","questions":[{"question":"Q?","answer":"A."}]}],
		"voice_query_scenarios":[{"category":"Search","sample_queries":["find lamps"]}]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	k := Load(path, nil)
	if k.Empty() {
		t.Fatal("expected populated knowledge base")
	}
	if len(k.Products) != 1 || k.Products[0].Name != "Desk Lamp" {
		t.Errorf("products decoded wrong: %+v", k.Products)
	}
	if k.Products[0].Rating == nil || *k.Products[0].Rating != 4.2 {
		t.Errorf("rating should decode as present: %+v", k.Products[0].Rating)
	}
	if len(k.Orders) != 1 || k.Orders[0].OrderStatus != "Processing" {
		t.Errorf("orders decoded wrong: %+v", k.Orders)
	}
	if _, ok := k.Policies["returns"]; !ok {
		t.Errorf("policies decoded wrong: %+v", k.Policies)
	}
	if len(k.FAQs) != 1 || len(k.FAQs[0].Questions) != 1 {
		t.Errorf("faqs decoded wrong: %+v", k.FAQs)
	}
	if len(k.Scenarios) != 1 {
		t.Errorf("scenarios decoded wrong: %+v", k.Scenarios)
	}
}

func TestPolicy_UnmarshalSplitsKnownFields(t *testing.T) {
	var p Policy
	raw := []byte(`{"title":"Shipping","last_updated":"2025-01-01","content":"Ships fast.","methods":["standard"],"fee":5}`)
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatal(err)
	}
	if p.Title != "Shipping" || p.LastUpdated != "2025-01-01" || p.Content != "Ships fast." {
		t.Errorf("known fields decoded wrong: %+v", p)
	}
	if _, ok := p.Fields["methods"]; !ok {
		t.Errorf("open field missing: %+v", p.Fields)
	}
	if _, ok := p.Fields["title"]; ok {
		t.Errorf("known field leaked into Fields: %+v", p.Fields)
	}
}

func TestKnowledgeBase_Empty(t *testing.T) {
	if !(KnowledgeBase{}).Empty() {
		t.Error("zero value should be empty")
	}
	k := KnowledgeBase{Orders: []Order{{}}}
	if k.Empty() {
		t.Error("knowledge base with an order is not empty")
	}
}
