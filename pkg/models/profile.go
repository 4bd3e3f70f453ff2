package models

// ResumeProfile is the singleton résumé aggregate. It owns its personal data and
// the three child collections; they are persisted and replaced as one unit.
type ResumeProfile struct {
	ID               int64        `json:"id"`
	Personal         PersonalData `json:"personal"`
	Skills           []Skill      `json:"skills"`
	Competences      []string     `json:"competences"`
	Experiences      []Experience `json:"experiences"`
	EducationHistory []Education  `json:"education_history"`
}

// PersonalData is embedded in a ResumeProfile and never addressed on its own.
type PersonalData struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website"`
	// ProfilePictureData holds base64 image data or a full data URI.
	ProfilePictureData string `json:"profile_picture_data"`
}

// Skill is a named skill with a free-text level.
type Skill struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Experience is one position in the work history. Period is free text.
type Experience struct {
	ID          int64  `json:"id"`
	Company     string `json:"company"`
	Period      string `json:"period"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// Education is one entry of the education history. Period is free text.
type Education struct {
	ID     int64  `json:"id"`
	School string `json:"school"`
	Period string `json:"period"`
	Degree string `json:"degree"`
	Notes  string `json:"notes"`
}
