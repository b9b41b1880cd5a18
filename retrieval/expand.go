package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/lectern/ai"
)

const expansionPrompt = `You are an AI assistant helping to search a vector database.
Generate %d alternative search queries or related sub-topics for the topic: "%s"
to ensure we find all relevant information in an educational textbook.
Return only the %d queries separated by newlines.`

// Expand asks the generator for alternative phrasings of seed. Failures are
// logged and yield no expansions.
func (e *Engine) Expand(ctx context.Context, seed string) []string {
	if e.expansions == 0 {
		return nil
	}

	prompt := fmt.Sprintf(expansionPrompt, e.expansions, seed, e.expansions)
	reply, err := e.generator.Complete(ctx, []ai.Message{ai.UserMessage(prompt)}, ai.WithTemperature(expansionTemperature))
	if err != nil {
		e.logger.Warn("query expansion failed", "err", err)
		return nil
	}
	return parseExpansions(reply, seed, e.expansions)
}

// parseExpansions takes one query per non-empty line, stripping list
// markers and quotes, skipping repeats of the seed, keeping at most n.
func parseExpansions(reply, seed string, n int) []string {
	seen := map[string]bool{strings.ToLower(seed): true}
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		q := cleanQuery(line)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}

func cleanQuery(line string) string {
	q := strings.TrimSpace(line)
	q = strings.TrimLeft(q, "-*•")
	// "1." or "2)" prefixes
	if i := strings.IndexAny(q, ".)"); i > 0 && i <= 3 && isDigits(q[:i]) {
		q = q[i+1:]
	}
	q = strings.TrimSpace(q)
	return strings.Trim(q, `"'`)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
