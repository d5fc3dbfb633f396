package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/lysyi3m/follow-comb/app/tracker"
)

var summaryTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{"link": link}).Parse(`<h2>Company Follow Tracker: Run Summary</h2>
<p><b>Profiles processed:</b> {{.Summary.ProfilesProcessed}}</p>
<p><b>New follows:</b> {{.Summary.FollowCount}}</p>
<p><b>New unfollows:</b> {{.Summary.UnfollowCount}}</p>
{{- if .SpreadsheetLink}}
<p><a href="{{.SpreadsheetLink}}">Open tracking spreadsheet</a></p>
{{- end}}
{{- with .Summary.Failures}}
<h3>Failed profiles</h3>
<ul>
{{- range .}}
<li>{{.Profile}}: {{.Error}}</li>
{{- end}}
</ul>
{{- end}}
{{- with .Summary.NewFollows}}
<h3>New follows</h3>
<ul>
{{- range .}}
<li>Company: {{link .CompanyURL .CompanyName}} | Follower: {{link .FollowerURL .FollowerName}} | {{.DateFollowed}}</li>
{{- end}}
</ul>
{{- end}}
{{- with .Summary.NewUnfollows}}
<h3>New unfollows</h3>
<ul>
{{- range .}}
<li>Company: {{link .CompanyURL .CompanyName}} | Follower: {{link .FollowerURL .FollowerName}} | Unfollowed: {{.UnfollowedDate}}</li>
{{- end}}
</ul>
{{- end}}
`))

// link renders an anchor, or the escaped text alone when there is no URL.
func link(url, text string) template.HTML {
	if text == "" {
		text = url
	}
	if url == "" {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(fmt.Sprintf(`<a href="%s" style="color:#0A66C2;">%s</a>`,
		template.HTMLEscapeString(url), template.HTMLEscapeString(text)))
}

// RenderSummary builds the HTML body of a summary message.
func RenderSummary(summary tracker.RunSummary, spreadsheetLink string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Summary         tracker.RunSummary
		SpreadsheetLink string
	}{summary, spreadsheetLink}

	if err := summaryTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return buf.String(), nil
}
