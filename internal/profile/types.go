// Package profile stores the candidate's own profile: the name, headline and
// skill list the bot uses when scoring postings and rendering outreach text.
package profile

// Profile is the structured candidate profile assembled from flat key-value
// pairs in storage.
type Profile struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Headline  string   `json:"headline"`
	Summary   string   `json:"summary"`
	Skills    []string `json:"skills"`
	ResumeID  string   `json:"resume_id"`
}

// FullName joins the first and last name, tolerating either being empty.
func (p Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
