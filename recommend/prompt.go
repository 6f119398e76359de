package recommend

import (
	"bytes"
	"text/template"

	"github.com/pkg/errors"

	"custseg/insights"
)

const systemPrompt = "You are a helpful data-driven sales advisor."

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a Sales Strategy Assistant for a wine retail company.

Based on the following *filtered customer segment data summary* (these values come from the selected range on the dashboard):

- Total Customers in This Segment: {{.NumCustomers}}
- Average Income: {{printf "%.2f" .AvgIncome}}
- Average Recency (days since last purchase): {{printf "%.2f" .AvgRecency}}
- Average Total Spend: {{printf "%.2f" .AvgTotalSpend}}
- Top Purchased Product Category: {{.TopProduct}}
- Most Used Sales Channel: {{.TopChannel}}
- Dominant Customer Cluster: {{.TopCluster}}

Generate **5 short, actionable, data-driven sales recommendations**.
Format as bullet points. Keep it concise and clear.
`))

// BuildPrompt renders the user prompt for a summary.
func BuildPrompt(summary insights.Summary) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, summary); err != nil {
		return "", errors.Wrap(err, "failed to render recommendation prompt")
	}
	return buf.String(), nil
}
