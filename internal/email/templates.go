package email

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.txt
var templateFS embed.FS

var emailTemplates = template.Must(template.New("email").
	Funcs(template.FuncMap{"orDash": orDash}).
	ParseFS(templateFS, "templates/*.txt"))

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
