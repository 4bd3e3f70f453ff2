// Package prompts builds the instructions sent to the AI providers.
package prompts

import (
	"fmt"
	"strings"

	"github.com/applytrack/applytrack/pkg/models"
)

// maxJobDescriptionLen bounds the job ad text sent to small local models.
const maxJobDescriptionLen = 6000

// BuildCoverLetterPrompt creates the prompt for drafting the body of a cover
// letter. profile may be nil. The model is asked for plain text only; the
// letter is placed into a template via the {{LetterText}} placeholder.
func BuildCoverLetterPrompt(profile *models.ResumeProfile, app *models.ApplicationRecord) string {
	var prompt strings.Builder

	prompt.WriteString("# Cover Letter\n\n")
	prompt.WriteString("Write the body of a cover letter for the job application below.\n\n")

	prompt.WriteString("## Position\n\n")
	writeField(&prompt, "Job title", app.JobTitle)
	writeField(&prompt, "Company", app.Company)
	writeField(&prompt, "Contact person", models.Text(app.ContactPerson))
	writeField(&prompt, "Location", models.Text(app.City))
	writeField(&prompt, "Working time", models.Text(app.WorkTimeModel))
	writeList(&prompt, "Requirements", app.Requirements)
	writeList(&prompt, "Benefits", app.Benefits)

	description := models.Text(app.JobSummary)
	if description == "" {
		description = models.Text(app.FullJobDescription)
	}
	if description != "" {
		if len(description) > maxJobDescriptionLen {
			description = description[:maxJobDescriptionLen]
		}
		prompt.WriteString("\n### Job description\n\n")
		prompt.WriteString(description)
		prompt.WriteString("\n")
	}

	if profile != nil {
		prompt.WriteString("\n## Applicant\n\n")
		writeField(&prompt, "Name", profile.Personal.Name)
		writeField(&prompt, "Title", profile.Personal.Title)
		writeField(&prompt, "Location", profile.Personal.Location)

		if len(profile.Experiences) > 0 {
			prompt.WriteString("\n### Experience\n\n")
			for _, e := range profile.Experiences {
				prompt.WriteString(fmt.Sprintf("- %s, %s (%s)", e.Role, e.Company, e.Period))
				if e.Description != "" {
					prompt.WriteString(": " + e.Description)
				}
				prompt.WriteString("\n")
			}
		}

		if len(profile.EducationHistory) > 0 {
			prompt.WriteString("\n### Education\n\n")
			for _, e := range profile.EducationHistory {
				prompt.WriteString(fmt.Sprintf("- %s, %s (%s)\n", e.Degree, e.School, e.Period))
			}
		}

		if len(profile.Skills) > 0 {
			skills := make([]string, 0, len(profile.Skills))
			for _, s := range profile.Skills {
				if s.Level != "" {
					skills = append(skills, fmt.Sprintf("%s (%s)", s.Name, s.Level))
				} else {
					skills = append(skills, s.Name)
				}
			}
			writeField(&prompt, "\nSkills", strings.Join(skills, ", "))
		}
		writeList(&prompt, "Competences", profile.Competences)
	}

	prompt.WriteString("\n## Instructions\n\n")
	prompt.WriteString("- Write three to five short paragraphs in the language of the job description.\n")
	prompt.WriteString("- Relate the applicant's experience to the listed requirements.\n")
	prompt.WriteString("- Do not invent qualifications that are not listed above.\n")
	prompt.WriteString("- Return only the letter text: no subject line, address block, signature, markdown or HTML.\n")

	return prompt.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString(fmt.Sprintf("%s: %s\n", label, value))
}

func writeList(b *strings.Builder, label string, items []string) {
	var kept []string
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return
	}
	b.WriteString(label + ":\n")
	for _, item := range kept {
		b.WriteString("- " + item + "\n")
	}
}
