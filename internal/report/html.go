package report

import (
	"bytes"
	"html/template"
)

var htmlPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head>
<meta charset="utf-8">
<title>{{.Doc.Title.EN}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 24px; }
h1 { background: #4472C4; color: #fff; padding: 8px; text-align: center; }
h2 { color: #1F4788; border-bottom: 1px solid #1F4788; }
table { border-collapse: collapse; width: 100%; margin-bottom: 12px; }
th { background: #4472C4; color: #fff; }
th, td { border: 1px solid #000; padding: 4px 6px; text-align: center; }
.summary th { background: #D9E1F2; color: #1F4788; text-align: start; }
.error { background: #FCE4D6; color: #C65911; padding: 8px; }
</style>
</head>
<body>
{{if .Cause}}<p class="error">PDF generation failed: {{.Cause}}</p>{{end}}
<h1>{{.Doc.Title.AR}}<br>{{.Doc.Title.EN}}</h1>
<p>{{.Doc.Date.Format "2006-01-02"}}</p>
{{range .Doc.Sections}}
<section>
{{if .Title.EN}}<h2>{{.Title.AR}} / {{.Title.EN}}</h2>{{end}}
{{range .Lines}}<p>{{.}}</p>{{end}}
{{with .Table}}
<table>
<tr>{{range .Headers}}<th>{{.AR}}<br>{{.EN}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
{{end}}
{{if .Summary}}
<table class="summary">
{{range .Summary}}<tr><th>{{.Label.AR}} / {{.Label.EN}}</th><td>{{.Value}}</td></tr>{{end}}
</table>
{{end}}
</section>
{{end}}
</body>
</html>
`))

// HTML renders d as a standalone page. A non-nil cause is shown at the top.
func HTML(d *Document, cause error) ([]byte, error) {
	data := struct {
		Doc   *Document
		Cause string
	}{Doc: d}
	if cause != nil {
		data.Cause = cause.Error()
	}
	var buf bytes.Buffer
	if err := htmlPage.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
