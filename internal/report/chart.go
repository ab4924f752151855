package report

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/leakview/leakview/internal/scanner"
)

// Chart colors per theme.
const (
	chartBarColor     = "#e8833a"
	chartHeight       = "320px"
	chartWidth        = "100%"
	darkChartText     = "#d6d3d1"
	lightChartText    = "#44403c"
	styleCloseTagLen  = 8 // len("</style>").
	chartContainerDiv = `<div class="container">`
)

// leakChartHTML builds a bar chart of leaked bytes per application and
// returns only its div and script, ready for embedding. An empty string is
// returned when there is nothing to plot.
func leakChartHTML(apps []scanner.AppStats, theme Theme) template.HTML {
	labels := make([]string, 0, len(apps))
	data := make([]opts.BarData, 0, len(apps))

	for _, app := range apps {
		if app.LeakedBytes == 0 {
			continue
		}

		labels = append(labels, app.App)
		data = append(data, opts.BarData{Value: app.LeakedBytes})
	}

	if len(labels) == 0 {
		return ""
	}

	textColor := darkChartText
	if theme == ThemeLight {
		textColor = lightChartText
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: textColor}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "leaked bytes", AxisLabel: &opts.AxisLabel{Color: textColor}}),
	)

	bar.SetXAxis(labels)
	bar.AddSeries("Leaked bytes", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: chartBarColor}))

	var buf bytes.Buffer

	err := bar.Render(&buf)
	if err != nil {
		return ""
	}

	return template.HTML(extractChartContent(buf.String()))
}

// extractChartContent pulls the chart div and script out of the full HTML
// page echarts renders, so the chart can live inside our own document.
func extractChartContent(html string) string {
	start := strings.Index(html, chartContainerDiv)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="chart-box"`)

	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			return content
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			return content
		}

		content = content[:i] + content[i+j+styleCloseTagLen:]
	}
}
