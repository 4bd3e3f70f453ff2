// Package render fills HTML document templates with profile and application data.
//
// Templates use literal, case-sensitive {{Token}} placeholders. Substitution is a
// single pass, so text inserted for one token is never scanned again, and no
// value is HTML-escaped: stored content is trusted.
package render

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/applytrack/applytrack/pkg/models"
)

// Placeholder tokens.
const (
	TokenName          = "{{Name}}"
	TokenTitle         = "{{Title}}"
	TokenEmail         = "{{Email}}"
	TokenPhone         = "{{Phone}}"
	TokenLocation      = "{{Location}}"
	TokenWebsite       = "{{Website}}"
	TokenPhoto         = "{{Photo}}"
	TokenJobTitle      = "{{JobTitle}}"
	TokenCompany       = "{{Company}}"
	TokenContactPerson = "{{ContactPerson}}"
	TokenStreet        = "{{Street}}"
	TokenZipCode       = "{{ZipCode}}"
	TokenCity          = "{{City}}"
	TokenDate          = "{{Date}}"
	TokenLetterText    = "{{LetterText}}"
	TokenExperience    = "{{CV_Experience}}"
	TokenEducation     = "{{CV_Education}}"
	TokenSkills        = "{{Skills_Content}}"
	TokenCompetences   = "{{Competences_Content}}"
)

// DefaultDateLayout renders {{Date}} as a short day.month.year date.
const DefaultDateLayout = "02.01.2006"

// PlaceholderPhoto is a 1x1 transparent GIF used when the profile has no picture.
const PlaceholderPhoto = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// Fallback fragments for empty collections.
const (
	NoExperience  = "No work experience on file."
	NoEducation   = "No education on file."
	NoSkills      = "No skills on file"
	NoCompetences = "<ul><li>No competences on file</li></ul>"
)

// Tokens returns every supported placeholder in a stable order.
func Tokens() []string {
	return []string{
		TokenName, TokenTitle, TokenEmail, TokenPhone, TokenLocation, TokenWebsite, TokenPhoto,
		TokenJobTitle, TokenCompany, TokenContactPerson, TokenStreet, TokenZipCode, TokenCity,
		TokenDate, TokenLetterText,
		TokenExperience, TokenEducation, TokenSkills, TokenCompetences,
	}
}

// Renderer renders templates with a configurable clock and date layout.
// The zero value uses the wall clock and DefaultDateLayout.
type Renderer struct {
	// Now supplies the {{Date}} value. Pin it for reproducible output.
	Now        func() time.Time
	DateLayout string
}

// Render renders tmpl using the wall clock. profile and app may be nil.
func Render(tmpl string, profile *models.ResumeProfile, app *models.ApplicationRecord) string {
	return Renderer{}.Render(tmpl, profile, app)
}

// Render substitutes every placeholder in tmpl. Absent sources and empty values
// produce fixed fallback text, so the output never contains a known token.
func (r Renderer) Render(tmpl string, profile *models.ResumeProfile, app *models.ApplicationRecord) string {
	if tmpl == "" {
		return ""
	}

	var p *models.PersonalData
	if profile != nil {
		p = &profile.Personal
	}

	personal := func(get func(*models.PersonalData) string, fallback string) string {
		if p == nil {
			return fallback
		}
		return orDefault(get(p), fallback)
	}
	application := func(get func(*models.ApplicationRecord) string, fallback string) string {
		if app == nil {
			return fallback
		}
		return orDefault(get(app), fallback)
	}

	replacer := strings.NewReplacer(
		TokenName, personal(func(p *models.PersonalData) string { return p.Name }, "Name"),
		TokenTitle, personal(func(p *models.PersonalData) string { return p.Title }, "Title"),
		TokenEmail, personal(func(p *models.PersonalData) string { return p.Email }, "Email"),
		TokenPhone, personal(func(p *models.PersonalData) string { return p.Phone }, "Phone"),
		TokenLocation, personal(func(p *models.PersonalData) string { return p.Location }, "Location"),
		TokenWebsite, personal(func(p *models.PersonalData) string { return p.Website }, "Website"),
		TokenPhoto, personal(func(p *models.PersonalData) string { return p.ProfilePictureData }, PlaceholderPhoto),

		TokenJobTitle, application(func(a *models.ApplicationRecord) string { return a.JobTitle }, "Position"),
		TokenCompany, application(func(a *models.ApplicationRecord) string { return a.Company }, "Company"),
		TokenContactPerson, application(func(a *models.ApplicationRecord) string { return models.Text(a.ContactPerson) }, "Contact person"),
		TokenStreet, application(func(a *models.ApplicationRecord) string { return models.Text(a.Street) }, "Street"),
		TokenZipCode, application(func(a *models.ApplicationRecord) string { return models.Text(a.ZipCode) }, "Zip code"),
		TokenCity, application(func(a *models.ApplicationRecord) string { return models.Text(a.City) }, "City"),
		TokenLetterText, application(func(a *models.ApplicationRecord) string { return models.Text(a.RawLetterText) }, "Letter text..."),
		TokenDate, r.date(),

		TokenExperience, experienceHTML(profile),
		TokenEducation, educationHTML(profile),
		TokenSkills, skillsHTML(profile),
		TokenCompetences, competencesHTML(profile),
	)
	return replacer.Replace(tmpl)
}

func (r Renderer) date() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	layout := r.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return now().Format(layout)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func experienceHTML(profile *models.ResumeProfile) string {
	if profile == nil || len(profile.Experiences) == 0 {
		return NoExperience
	}
	var b strings.Builder
	for _, e := range profile.Experiences {
		fmt.Fprintf(&b, "<div class='experience-item'><strong>%s</strong> at %s (%s)<br/>%s</div>",
			e.Role, e.Company, e.Period, e.Description)
	}
	return b.String()
}

// EducationSortKey returns the key education entries are ordered by: the last
// four characters of period, or the whole period when it is shorter. It is a
// rough year extraction ("2015-2018" sorts by "2018"), compared lexically.
func EducationSortKey(period string) string {
	runes := []rune(period)
	if len(runes) < 4 {
		return period
	}
	return string(runes[len(runes)-4:])
}

func educationHTML(profile *models.ResumeProfile) string {
	if profile == nil || len(profile.EducationHistory) == 0 {
		return NoEducation
	}

	sorted := slices.Clone(profile.EducationHistory)
	slices.SortStableFunc(sorted, func(a, b models.Education) int {
		return cmp.Compare(EducationSortKey(b.Period), EducationSortKey(a.Period))
	})

	var b strings.Builder
	for _, e := range sorted {
		fmt.Fprintf(&b, "<div class='education-item'><strong>%s</strong> - %s (%s)<br/>%s</div>",
			e.Degree, e.School, e.Period, e.Notes)
	}
	return b.String()
}

func skillsHTML(profile *models.ResumeProfile) string {
	if profile == nil || len(profile.Skills) == 0 {
		return NoSkills
	}
	parts := make([]string, 0, len(profile.Skills))
	for _, s := range profile.Skills {
		if s.Level == "" {
			parts = append(parts, s.Name)
			continue
		}
		parts = append(parts, s.Name+" ("+s.Level+")")
	}
	return strings.Join(parts, ", ")
}

func competencesHTML(profile *models.ResumeProfile) string {
	if profile == nil || len(profile.Competences) == 0 {
		return NoCompetences
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, c := range profile.Competences {
		b.WriteString("<li>" + c + "</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
