package models

// HtmlTemplate is a reusable document design: three HTML bodies sharing one stylesheet.
type HtmlTemplate struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	HtmlCoverPage   string `json:"html_cover_page"`
	HtmlCoverLetter string `json:"html_cover_letter"`
	HtmlResume      string `json:"html_resume"`
	CustomCSS       string `json:"custom_css"`
}

// NewHtmlTemplate returns a template pre-filled with starter content.
func NewHtmlTemplate() *HtmlTemplate {
	return &HtmlTemplate{
		Name:            "New design",
		HtmlCoverPage:   "<h1>Cover page</h1>",
		HtmlCoverLetter: "<p>Your text...</p>",
		HtmlResume:      "<h1>Résumé</h1>",
		CustomCSS:       "body { font-family: Arial; }",
	}
}
