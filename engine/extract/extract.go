// Package extract flattens knowledge-base records into retrievable text
// chunks, one self-contained chunk per record. Rendering is deterministic:
// map-shaped fields are walked in sorted key order so a given knowledge base
// always yields the same chunk sequence.
package extract

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/voicecart/voicecart/engine/kb"
)

// Chunks renders every record of the knowledge base into its chunk text, in
// section order: products, orders, policies, FAQs, voice scenarios.
// An empty knowledge base yields nil.
func Chunks(k kb.KnowledgeBase) []string {
	var chunks []string

	for _, p := range k.Products {
		chunks = append(chunks, Product(p))
	}
	for _, o := range k.Orders {
		chunks = append(chunks, Order(o))
	}
	for _, name := range sortedKeys(k.Policies) {
		var p kb.Policy
		if err := json.Unmarshal(k.Policies[name], &p); err != nil {
			continue // non-object policy entries are skipped
		}
		chunks = append(chunks, Policy(name, p))
	}
	for _, cat := range k.FAQs {
		name := cat.Category
		if name == "" {
			name = "General"
		}
		for _, q := range cat.Questions {
			chunks = append(chunks, FAQEntry(name, q))
		}
	}
	for _, s := range k.Scenarios {
		chunks = append(chunks, Scenario(s))
	}

	return chunks
}

// Product renders one catalog entry. Specification, rating, and keyword
// sentences are emitted only when the source record carries those fields.
func Product(p kb.Product) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Product: %s (ID: %s). ", orUnknown(p.Name), orNA(p.ProductID))
	fmt.Fprintf(&b, "Category: %s - %s. ", orNA(p.Category), orNA(p.Subcategory))
	fmt.Fprintf(&b, "Brand: %s. Price: $%.2f. ", orNA(p.Brand), p.Price)
	fmt.Fprintf(&b, "Stock Status: %s. Description: %s. ", orNA(p.StockStatus), orNA(p.Description))

	if p.Specifications != nil {
		b.WriteString("Specifications: ")
		for _, key := range sortedKeys(p.Specifications) {
			fmt.Fprintf(&b, "%s: %s; ", key, flatValue(p.Specifications[key]))
		}
	}
	if p.Rating != nil {
		fmt.Fprintf(&b, "Rating: %s/5.0 (%d reviews). ", formatNumber(*p.Rating), p.ReviewCount)
	}
	if p.Keywords != nil {
		fmt.Fprintf(&b, "Keywords: %s.", strings.Join(p.Keywords, ", "))
	}

	return strings.TrimSpace(b.String())
}

// Order renders one order record. The tracking sentence appears only for a
// non-empty tracking number.
func Order(o kb.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Order ID: %s. ", orNA(o.OrderID))
	fmt.Fprintf(&b, "Status: %s. ", orNA(o.OrderStatus))
	fmt.Fprintf(&b, "Order Date: %s. ", orNA(o.OrderDate))

	if o.TrackingNumber != "" {
		fmt.Fprintf(&b, "Tracking: %s via %s. ", o.TrackingNumber, orNA(o.Carrier))
	}
	if o.EstimatedDelivery != nil {
		fmt.Fprintf(&b, "Estimated Delivery: %s. ", *o.EstimatedDelivery)
	}
	if o.Items != nil {
		b.WriteString("Items: ")
		for _, it := range o.Items {
			fmt.Fprintf(&b, "%s (Qty: %d, Price: $%.2f); ", orNA(it.ProductName), it.Quantity, it.Price)
		}
	}
	if o.Total != nil {
		fmt.Fprintf(&b, "Total: $%.2f (Shipping: $%.2f, Tax: $%.2f). ", *o.Total, o.ShippingCost, o.Tax)
	}

	return strings.TrimSpace(b.String())
}

// Policy renders one policy entry. The title falls back to the mapping key.
// Detail fields are flattened in sorted key order: lists of objects become
// one sentence per object, scalar lists are comma-joined, string fields
// become "key: value." sentences, and other scalars are skipped.
func Policy(name string, p kb.Policy) string {
	var b strings.Builder

	title := p.Title
	if title == "" {
		title = name
	}
	fmt.Fprintf(&b, "Policy: %s. Last Updated: %s. ", title, orNA(p.LastUpdated))

	if p.Content != "" {
		b.WriteString(p.Content)
		b.WriteString(" ")
	}

	for _, key := range sortedKeys(p.Fields) {
		switch v := p.Fields[key].(type) {
		case []any:
			if len(v) > 0 {
				if _, ok := v[0].(map[string]any); ok {
					for _, elem := range v {
						obj, ok := elem.(map[string]any)
						if !ok {
							continue
						}
						pairs := make([]string, 0, len(obj))
						for _, k := range sortedKeys(obj) {
							pairs = append(pairs, fmt.Sprintf("%s: %s", k, flatValue(obj[k])))
						}
						fmt.Fprintf(&b, "%s. ", strings.Join(pairs, "; "))
					}
					continue
				}
			}
			fmt.Fprintf(&b, "%s: %s. ", key, flatValue(v))
		case string:
			fmt.Fprintf(&b, "%s: %s. ", key, v)
		default:
			// Bare numbers and booleans carry no prose value on their own.
		}
	}

	return strings.TrimSpace(b.String())
}

// FAQEntry renders one question/answer pair under its category.
func FAQEntry(category string, q kb.FAQ) string {
	return strings.TrimSpace(fmt.Sprintf(
		"FAQ Category: %s. Question: %s Answer: %s",
		category, orNA(q.Question), orNA(q.Answer),
	))
}

// Scenario renders one scripted voice-query example, keeping at most the
// first three sample queries.
func Scenario(s kb.Scenario) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Voice Scenario: %s. Intent: %s. ", orNA(s.Category), orNA(s.UserIntent))

	if s.SampleQueries != nil {
		queries := s.SampleQueries
		if len(queries) > 3 {
			queries = queries[:3]
		}
		fmt.Fprintf(&b, "Sample queries: %s. ", strings.Join(queries, ", "))
	}
	if s.SampleBotResponse != nil {
		fmt.Fprintf(&b, "Bot response: %s. ", *s.SampleBotResponse)
	}

	return strings.TrimSpace(b.String())
}

// --- rendering helpers ---

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// flatValue renders a decoded JSON value as flat prose; lists are
// comma-joined.
func flatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = flatValue(e)
		}
		return strings.Join(parts, ", ")
	case nil:
		return "N/A"
	default:
		return fmt.Sprint(t)
	}
}

// formatNumber renders a JSON number without a trailing ".0" for integers.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
