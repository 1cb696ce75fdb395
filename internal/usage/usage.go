// Package usage estimates token counts and costs for model invocations and
// parses the CLI agent's output.
package usage

import (
	"encoding/json"
	"strings"
)

// Result is the outcome of one model invocation.
type Result struct {
	Text         string  `json:"text"`
	Model        string  `json:"model,omitempty"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	CLISessionID string  `json:"cli_session_id,omitempty"`
	DurationMs   int64   `json:"duration_ms,omitempty"`
	IsError      bool    `json:"is_error,omitempty"`
}

// EstimateTokens approximates the token count of text. Roughly four
// characters per token; non-empty text counts as at least one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

type modelCost struct {
	inputPerM  float64
	outputPerM float64
}

// USD per million tokens.
var modelCosts = map[string]modelCost{
	"claude-opus-4":    {15.0, 75.0},
	"claude-sonnet-4":  {3.0, 15.0},
	"claude-haiku-3-5": {0.8, 4.0},
}

var defaultCost = modelCost{3.0, 15.0}

// Cost computes the USD cost of an invocation. Unknown models fall back to
// the default rate.
func Cost(model string, inputTokens, outputTokens int) float64 {
	c, ok := modelCosts[model]
	if !ok {
		c = defaultCost
	}
	return float64(inputTokens)*c.inputPerM/1e6 + float64(outputTokens)*c.outputPerM/1e6
}

// cliOutput is the JSON envelope emitted by the CLI in json output mode.
type cliOutput struct {
	Type      string  `json:"type"`
	Subtype   string  `json:"subtype"`
	Result    string  `json:"result"`
	IsError   bool    `json:"is_error"`
	SessionID string  `json:"session_id"`
	TotalCost float64 `json:"total_cost_usd"`
	Usage     struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ParseCLIOutput decodes CLI output into a Result. Output that is not valid
// JSON is treated as plain text with no usage information; callers fill in
// estimates for missing fields.
func ParseCLIOutput(raw []byte) *Result {
	trimmed := strings.TrimSpace(string(raw))
	var out cliOutput
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil || out.Type == "" {
		return &Result{Text: trimmed}
	}
	return &Result{
		Text:         out.Result,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		CostUSD:      out.TotalCost,
		CLISessionID: out.SessionID,
		IsError:      out.IsError,
	}
}
