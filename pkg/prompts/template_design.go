package prompts

import (
	"strings"
)

// TemplateDesignResponse is the JSON document the model must return for a
// template design request.
type TemplateDesignResponse struct {
	Name            string `json:"name"`
	HtmlCoverPage   string `json:"htmlCoverPage"`
	HtmlCoverLetter string `json:"htmlCoverLetter"`
	HtmlResume      string `json:"htmlResume"`
	CustomCSS       string `json:"customCss"`
}

// BuildTemplateDesignPrompt creates the prompt that turns a screenshot of an
// application document into a reusable template. tokens lists the
// placeholders the template may use; hint is optional extra guidance.
func BuildTemplateDesignPrompt(tokens []string, hint string) string {
	var prompt strings.Builder

	prompt.WriteString("# Application Document Template\n\n")
	prompt.WriteString("The attached image shows an application document. Recreate its visual design ")
	prompt.WriteString("as an HTML template made of three parts (cover page, cover letter, résumé) sharing one stylesheet.\n\n")

	prompt.WriteString("## Placeholders\n\n")
	prompt.WriteString("Use these placeholders instead of concrete personal data. Write them exactly as shown:\n")
	for _, token := range tokens {
		prompt.WriteString("- " + token + "\n")
	}
	prompt.WriteString("\nList placeholders such as {{CV_Experience}} expand to complete HTML blocks; do not wrap them in <ul> or <table>.\n")

	if hint = strings.TrimSpace(hint); hint != "" {
		prompt.WriteString("\n## Additional guidance\n\n")
		prompt.WriteString(hint)
		prompt.WriteString("\n")
	}

	prompt.WriteString("\n## Response Format\n\n")
	prompt.WriteString("Respond with a single JSON object and nothing else:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "name": "short design name",
  "htmlCoverPage": "<div>...</div>",
  "htmlCoverLetter": "<div>...</div>",
  "htmlResume": "<div>...</div>",
  "customCss": "body { ... }"
}`)
	prompt.WriteString("\n```\n\n")
	prompt.WriteString("The HTML parts contain body content only (no <html>, <head> or <style> elements). ")
	prompt.WriteString("All styling goes into customCss.\n")

	return prompt.String()
}
