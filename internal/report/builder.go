// Package report renders run results for people: an HTML page (also the
// body of failure emails), machine-readable summaries and console output.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

// Builder creates reports from run results
type Builder struct {
	template *template.Template
}

// New creates a new report builder
func New() (*Builder, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"ms": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	}).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{template: tmpl}, nil
}

// Report represents a rendered report ready for writing or sending
type Report struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	Passed    bool
	CreatedAt time.Time
}

// ReportData is the template data structure
type ReportData struct {
	Title     string
	RunID     string
	BaseURL   string
	Date      string
	Duration  string
	Passed    bool
	Scenarios []ScenarioData
	Stats     StatsData
}

// ScenarioData represents a scenario in the report template
type ScenarioData struct {
	Name     string
	Status   string
	Error    string
	Duration time.Duration
	Checks   []types.Check
	Images   []ImageData
}

// ImageData is a screenshot link relative to the report
type ImageData struct {
	Name string
	Src  string
}

// StatsData contains run statistics
type StatsData struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
}

// Build renders run. Screenshot links are made relative to baseDir, the
// directory the HTML file will live in; an empty baseDir keeps them as is.
func (b *Builder) Build(run *types.RunResult, baseDir string) (*Report, error) {
	if run == nil {
		return nil, fmt.Errorf("no run to report")
	}

	counts := run.Counts()
	data := ReportData{
		Title:    "chatcheck: " + verdict(run.Passed()),
		RunID:    run.ID,
		BaseURL:  run.BaseURL,
		Date:     run.StartedAt.Format("Monday, January 2 2006 15:04:05 MST"),
		Duration: run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
		Passed:   run.Passed(),
		Stats: StatsData{
			Total:   len(run.Scenarios),
			Passed:  counts[types.StatusPassed],
			Failed:  counts[types.StatusFailed],
			Errored: counts[types.StatusErrored],
		},
	}

	for _, s := range run.Scenarios {
		sd := ScenarioData{
			Name:     s.Scenario,
			Status:   string(s.Status),
			Error:    s.Error,
			Duration: s.Duration,
			Checks:   s.Checks,
		}
		for _, a := range s.Artifacts {
			if a.Kind != types.KindScreenshot {
				continue
			}
			sd.Images = append(sd.Images, ImageData{Name: a.Name, Src: relativeTo(baseDir, a.Path)})
		}
		data.Scenarios = append(data.Scenarios, sd)
	}

	// Render HTML
	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Subject: fmt.Sprintf("[chatcheck] %s: %d/%d scenarios passed on %s",
			verdict(run.Passed()), data.Stats.Passed, data.Stats.Total, run.BaseURL),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		Passed:    run.Passed(),
		CreatedAt: time.Now(),
	}, nil
}

func verdict(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func relativeTo(baseDir, path string) string {
	if baseDir == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s\n%s (run %s, %s)\n", data.Title, data.Date, data.RunID, data.Duration))
	buf.WriteString(fmt.Sprintf("Target: %s\n\n", data.BaseURL))

	for _, s := range data.Scenarios {
		buf.WriteString(fmt.Sprintf("[%s] %s (%s)\n", s.Status, s.Name, s.Duration.Round(time.Millisecond)))
		if s.Error != "" {
			buf.WriteString(fmt.Sprintf("   error: %s\n", s.Error))
		}
		for _, c := range s.Checks {
			if !c.Passed {
				buf.WriteString(fmt.Sprintf("   failed check %s: %s\n", c.Name, c.Detail))
			}
		}
	}

	buf.WriteString(fmt.Sprintf("\n%d passed, %d failed, %d errored\n", data.Stats.Passed, data.Stats.Failed, data.Stats.Errored))
	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { margin-bottom: 5px; }
        h1.pass { color: #16a34a; }
        h1.fail { color: #dc2626; }
        .meta { color: #666; margin-bottom: 20px; }
        .scenario { border-bottom: 1px solid #eee; padding: 15px 0; }
        .scenario:last-child { border-bottom: none; }
        .name { font-weight: bold; color: #333; }
        .status { padding: 2px 8px; border-radius: 12px; font-size: 12px; margin-left: 8px; }
        .status.passed { background: #dcfce7; color: #16a34a; }
        .status.failed { background: #fee2e2; color: #dc2626; }
        .status.errored { background: #fef3c7; color: #b45309; }
        .error { color: #b45309; font-family: monospace; margin: 8px 0; white-space: pre-wrap; }
        .checks { margin: 8px 0; padding-left: 20px; }
        .check.ok { color: #16a34a; }
        .check.bad { color: #dc2626; }
        .detail { color: #666; font-size: 13px; }
        .shots { display: flex; flex-wrap: wrap; gap: 10px; }
        .shot { font-size: 12px; color: #666; text-align: center; }
        .shot img { max-width: 260px; border: 1px solid #ddd; border-radius: 4px; display: block; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1 class="{{if .Passed}}pass{{else}}fail{{end}}">{{.Title}}</h1>
        <div class="meta">{{.Date}} · {{.BaseURL}} · run {{.RunID}} · {{.Duration}}</div>

        {{range .Scenarios}}
        <div class="scenario">
            <div><span class="name">{{.Name}}</span><span class="status {{.Status}}">{{.Status}}</span> <span class="detail">{{ms .Duration}}</span></div>
            {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
            <ul class="checks">
                {{range .Checks}}<li class="check {{if .Passed}}ok{{else}}bad{{end}}">{{if .Passed}}✔{{else}}✘{{end}} {{.Name}} <span class="detail">{{.Detail}}</span></li>
                {{end}}
            </ul>
            <div class="shots">
                {{range .Images}}<a class="shot" href="{{.Src}}"><img src="{{.Src}}" alt="{{.Name}}">{{.Name}}</a>
                {{end}}
            </div>
        </div>
        {{end}}

        <div class="footer">
            {{.Stats.Passed}} passed · {{.Stats.Failed}} failed · {{.Stats.Errored}} errored of {{.Stats.Total}} · Generated by chatcheck
        </div>
    </div>
</body>
</html>`
