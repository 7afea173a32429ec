// Package kb defines the typed schema of the e-commerce knowledge base and
// loads it from its JSON source file. Every top-level section is optional;
// a missing or unreadable source degrades to an empty knowledge base rather
// than an error, so the rest of the engine keeps running context-free.
package kb

import "encoding/json"

// KnowledgeBase is the root document. Absent sections decode to nil slices.
type KnowledgeBase struct {
	Products  []Product                  `json:"products"`
	Orders    []Order                    `json:"orders"`
	Policies  map[string]json.RawMessage `json:"policies"`
	FAQs      []FAQCategory              `json:"faqs"`
	Scenarios []Scenario                 `json:"voice_query_scenarios"`
}

// Empty reports whether no section carries any records.
func (k KnowledgeBase) Empty() bool {
	return len(k.Products) == 0 && len(k.Orders) == 0 &&
		len(k.Policies) == 0 && len(k.FAQs) == 0 && len(k.Scenarios) == 0
}

// Product is one catalog entry. Pointer fields distinguish absent from zero.
type Product struct {
	Name           string         `json:"name"`
	ProductID      string         `json:"product_id"`
	Category       string         `json:"category"`
	Subcategory    string         `json:"subcategory"`
	Brand          string         `json:"brand"`
	Price          float64        `json:"price"`
	StockStatus    string         `json:"stock_status"`
	Description    string         `json:"description"`
	Specifications map[string]any `json:"specifications"`
	Rating         *float64       `json:"rating"`
	ReviewCount    int            `json:"review_count"`
	Keywords       []string       `json:"keywords"`
}

// Order is one order record.
type Order struct {
	OrderID           string      `json:"order_id"`
	OrderStatus       string      `json:"order_status"`
	OrderDate         string      `json:"order_date"`
	TrackingNumber    string      `json:"tracking_number"`
	Carrier           string      `json:"carrier"`
	EstimatedDelivery *string     `json:"estimated_delivery"`
	Items             []OrderItem `json:"items"`
	Total             *float64    `json:"total"`
	ShippingCost      float64     `json:"shipping_cost"`
	Tax               float64     `json:"tax"`
}

// OrderItem is one line item within an order.
type OrderItem struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Policy is one store policy. Beyond the three well-known fields, policies
// carry free-form detail fields (shipping methods, fee tables, bullet lists)
// kept in Fields for the extractor to flatten.
type Policy struct {
	Title       string
	LastUpdated string
	Content     string
	Fields      map[string]any
}

// UnmarshalJSON splits the well-known policy fields from the open remainder.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Fields = make(map[string]any)
	for k, v := range raw {
		switch k {
		case "title":
			if s, ok := v.(string); ok {
				p.Title = s
			}
		case "last_updated":
			if s, ok := v.(string); ok {
				p.LastUpdated = s
			}
		case "content":
			if s, ok := v.(string); ok {
				p.Content = s
			}
		default:
			p.Fields[k] = v
		}
	}
	return nil
}

// FAQCategory groups FAQ entries under one topic.
type FAQCategory struct {
	Category  string `json:"category"`
	Questions []FAQ  `json:"questions"`
}

// FAQ is one question/answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Scenario is one scripted voice-query example.
type Scenario struct {
	Category          string   `json:"category"`
	UserIntent        string   `json:"user_intent"`
	SampleQueries     []string `json:"sample_queries"`
	SampleBotResponse *string  `json:"sample_bot_response"`
}
