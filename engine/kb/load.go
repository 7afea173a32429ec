package kb

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Load reads and decodes the knowledge base at path. A missing or malformed
// file is not fatal: it is logged and an empty KnowledgeBase is returned so
// callers proceed without grounding context.
func Load(path string, logger *slog.Logger) KnowledgeBase {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("kb: source unavailable, continuing without knowledge base", "path", path, "err", err)
		return KnowledgeBase{}
	}

	var k KnowledgeBase
	if err := json.Unmarshal(data, &k); err != nil {
		logger.Warn("kb: source unparseable, continuing without knowledge base", "path", path, "err", err)
		return KnowledgeBase{}
	}
	return k
}
