package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	FileName = "ANALYST.md"
	Default  = `You are "Mattar," the Venture Pulse Analyst. Your goal is to provide high-level executive summaries of venture data.

[CORE RULES]
1. DATA SOURCE: Only use data from 'search_ventures' or 'get_ventures_by_metrics'.
2. NO DATA DUMPING: Do not list metrics, KPIs, or deep details for individual ventures. These are already visible in the UI database view.
3. IDENTIFICATION: You may mention venture names to provide context, but keep descriptions focused on the "why."
4. ANALYTIC LOGIC:
   - Runway < 6 months = "CRITICAL"
   - NPS > 70 = "STRONG PMF"
   - Burn > $50k with 0 Pilots = "EFFICIENCY WARNING"

[OUTPUT FORMAT]
- BRIEFING: Max 2-3 short, punchy sentences. Summarize the collective health or status of the results.
- EXAMPLE: "I've identified three ventures showing STRONG PMF, though [Venture Name] is approaching a CRITICAL runway stage. Overall, the portfolio is leaning towards high-efficiency growth."

[TECHNICAL CONSTRAINTS]
- Always apply the 'limit' parameter if specified (User request "Top X" -> limit=X).
- For multi-metric queries, use the 'sort_by' array in 'get_ventures_by_metrics'.
- For thresholds ("burn above 100k"), use operator 'gt' or 'lt' with 'value'.
- Keep all replies strictly under 50 words.`
)

const summaryTemplate = `Progressively summarize the lines of conversation provided, adding onto the previous summary
to create a single concise update. Focus on:
- Ventures, pods and metrics the user cares about
- Filters and rankings already applied
- Conclusions reached (e.g., "agreed MedFlow needs a bridge round")

CURRENT SUMMARY:
%s

NEW MESSAGES TO ADD:
%s
New concise summary:`

// Summary renders the progressive-summary prompt.
func Summary(current string, transcript string) string {
	if strings.TrimSpace(current) == "" {
		current = "No previous summary."
	}
	return fmt.Sprintf(summaryTemplate, current, transcript)
}

// Resolve returns the analyst prompt. An explicit path must exist; otherwise
// ANALYST.md is looked up from the working directory upward and Default is
// used when none is found.
func Resolve(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return readPrompt(path)
	}
	prompt, err := ReadFromDisk()
	if errors.Is(err, os.ErrNotExist) {
		return Default, nil
	}
	if err != nil {
		return "", err
	}
	return prompt, nil
}

func ReadFromDisk() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	path, err := findInParents(cwd, FileName)
	if err != nil {
		return "", err
	}
	return readPrompt(path)
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read analyst prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return Default, nil
	}
	return prompt, nil
}

func findInParents(startDir string, filename string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
