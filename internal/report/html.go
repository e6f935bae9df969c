package report

import (
	"bytes"
	"fmt"
	"html/template"

	"promptum/internal/benchmark"
)

// HTMLSerializer renders a standalone HTML report with a summary table and
// one row per case.
type HTMLSerializer struct{}

func (HTMLSerializer) Serialize(r *benchmark.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, reportDocument(r)); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.Bytes(), nil
}

func (HTMLSerializer) ContentType() string { return "text/html" }

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"ms":  func(v float64) string { return fmt.Sprintf("%.1f ms", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Benchmark report {{.Report.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; margin-bottom: 2rem; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #f0f0f0; }
.pass { color: #1a7f37; }
.fail { color: #cf222e; }
</style>
</head>
<body>
<h1>Benchmark report</h1>
<p>Run <code>{{.Report.RunID}}</code>{{if .Report.Provider}} on <code>{{.Report.Provider}}</code>{{end}}, started {{.Report.StartedAt.Format "2006-01-02 15:04:05 MST"}}</p>

<h2>Summary</h2>
<table>
<tr><th>Total</th><th>Passed</th><th>Failed</th><th>Errors</th><th>Pass rate</th><th>Mean latency</th><th>Total tokens</th><th>Total cost</th></tr>
<tr>
<td>{{.Summary.Total}}</td>
<td class="pass">{{.Summary.Passed}}</td>
<td class="fail">{{.Summary.Failed}}</td>
<td>{{.Summary.Errors}}</td>
<td>{{pct .Summary.PassRate}}</td>
<td>{{ms .Summary.MeanLatencyMS}}</td>
<td>{{.Summary.TotalTokens}}</td>
<td>${{printf "%.4f" .Summary.TotalCostUSD}}</td>
</tr>
</table>

<h2>Cases</h2>
<table>
<tr><th>Case</th><th>Model</th><th>Status</th><th>Latency</th><th>Validator</th><th>Response / error</th></tr>
{{range .Report.Results}}
<tr>
<td>{{.Case.Name}}</td>
<td>{{.Case.Model}}</td>
{{if .Passed}}<td class="pass">pass</td>{{else}}<td class="fail">fail</td>{{end}}
<td>{{if .Metrics}}{{ms .Metrics.LatencyMS}}{{end}}</td>
<td>{{.Case.ValidatorDescription}}</td>
<td>{{if .ExecutionError}}{{.ExecutionError}}{{else}}{{.Response}}{{end}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))
