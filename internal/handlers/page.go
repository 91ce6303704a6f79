package handlers

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var createPage = template.Must(template.ParseFS(templateFS, "templates/create.html"))

type pageLink struct {
	ShortURL    string
	Destination string
	Description string
}

type createPageData struct {
	ShadowUserID string
	Links        []pageLink
}

func renderCreatePage(data createPageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := createPage.Execute(&buf, data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
