package rag

import "strings"

// commerceKeywords is the fixed vocabulary the relevance gate scans for.
// Matching is lowercase substring containment, so multi-word entries like
// "customer service" match as phrases.
var commerceKeywords = []string{
	"product", "item", "buy", "purchase", "price", "cost",
	"feature", "specification", "spec", "available", "stock",
	"catalog", "shopping", "shop", "store", "brand", "model",
	"review", "rating", "compare", "similar", "alternative",
	"discount", "sale", "offer", "deal", "shipping", "delivery",
	"warranty", "return", "refund", "order", "cart", "checkout",
	"track", "status", "policy", "faq", "question", "help",
	"support", "customer service", "payment", "billing",
}

// hasCommerceKeyword reports whether the query mentions any commerce term.
func hasCommerceKeyword(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range commerceKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
