package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gotrs-io/boardcheck/internal/runner"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
	),
)

// htmlPolicy allows the elements goldmark produces for the report and nothing
// that could execute.
func htmlPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "p", "br", "hr", "strong", "em", "code", "pre", "ul", "ol", "li")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("style").Matching(bluemonday.Paragraph).OnElements("th", "td")
	p.AllowAttrs("align").OnElements("th", "td")
	p.AllowElements("a")
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "file")
	p.RequireNoFollowOnLinks(true)
	return p
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #172b4d; }
table { border-collapse: collapse; }
th, td { border: 1px solid #dfe1e6; padding: .3rem .6rem; text-align: left; vertical-align: top; }
</style>
</head>
<body>
%s
</body>
</html>
`

// Markdown renders the summary as a GitHub flavoured Markdown document.
func Markdown(s *runner.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Board verification %s\n\n", mdEscape(s.RunID))
	fmt.Fprintf(&b, "Started %s, took %s.\n\n", s.StartedAt.UTC().Format(time.RFC1123), round(s.Duration))
	fmt.Fprintf(&b, "**%d** passed, **%d** failed, **%d** errored of %d scenarios.\n\n",
		s.Passed, s.Failed, s.Errored, s.Total())

	b.WriteString("| Status | Scenario | Column | Tags | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range s.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			label(r.Status),
			cell(r.Title),
			cell(r.Scenario.Column),
			cell(strings.Join(r.Scenario.Tags, ", ")),
			round(r.Duration))
	}

	var problems []runner.Result
	for _, r := range s.Results {
		if r.Status != runner.StatusPassed {
			problems = append(problems, r)
		}
	}
	if len(problems) == 0 {
		return b.String()
	}

	b.WriteString("\n## Problems\n\n")
	for _, r := range problems {
		fmt.Fprintf(&b, "- **%s** `%s`: %s", mdEscape(r.Scenario.ID), r.Kind, mdEscape(r.Message))
		if r.Screenshot != "" {
			fmt.Fprintf(&b, " ([screenshot](%s))", strings.ReplaceAll(r.Screenshot, " ", "%20"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteHTML renders the Markdown report to sanitized HTML.
func WriteHTML(path string, s *runner.Summary) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(s)), &body); err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	safe := htmlPolicy().SanitizeBytes(body.Bytes())
	title := html.EscapeString("boardcheck " + s.RunID)
	return os.WriteFile(path, []byte(fmt.Sprintf(htmlPage, title, safe)), 0o644)
}

var mdReplacer = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}

// cell escapes s for use inside a table cell.
func cell(s string) string {
	return strings.ReplaceAll(mdEscape(s), "\n", " ")
}
