package judge

import (
	"fmt"
	"strings"

	"github.com/kazetani/hekla/pkg/decision"
)

const systemPrompt = `You are a quantitative trading analyst. You receive a set of
historical price patterns that are geometrically similar to the current
market shape, together with what the market did immediately after each
of them. Weigh the evidence and answer with exactly one JSON object:

{"signal": "LONG" | "SHORT" | "HOLD", "confidence": <0..1>, "reasoning": "<one or two sentences>"}

Prefer HOLD when the historical outcomes disagree or the sample is
small. Respond with the JSON object only, no surrounding text.`

// BuildPrompt renders the retrieval evidence as the user message.
func BuildPrompt(ev decision.Evidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Symbol: %s  Interval: %s  As of: %s\n\n",
		ev.Symbol, ev.Interval, ev.QueryTime.UTC().Format("2006-01-02 15:04:05"))

	b.WriteString("Similar historical patterns (closest first):\n")
	for i, n := range ev.Neighbors {
		fmt.Fprintf(&b, "%d. %s  distance=%.4f  next_return=%+.5f  slope_3=%+.5f  slope_5=%+.5f\n",
			i+1,
			n.Time.UTC().Format("2006-01-02 15:04"),
			n.Distance,
			n.NextReturnValue(),
			n.NextSlope3Value(),
			n.NextSlope5Value(),
		)
	}

	c := ev.Consensus
	fmt.Fprintf(&b, "\nConsensus over %d patterns: %.0f%% went up next bar, mean next return %+.5f, mean 3-bar slope %+.5f, mean 5-bar slope %+.5f\n",
		c.Samples, c.UpFraction*100, c.MeanNextReturn, c.MeanSlope3, c.MeanSlope5)

	if len(ev.RecentCloses) > 0 {
		b.WriteString("\nRecent closes (oldest first): ")
		for i, p := range ev.RecentCloses {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%.4f", p)
		}
		b.WriteString("\n")
	}

	if len(ev.Snapshot) > 0 {
		b.WriteString("\nA chart snapshot of the current window is attached.\n")
	}

	b.WriteString("\nGive your judgment as the JSON object described in the system prompt.")
	return b.String()
}
