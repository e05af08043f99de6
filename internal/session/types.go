// Package session implements the automation session: authentication state,
// mode quotas, rate-limited execution with backoff, human pacing, and the
// batch operations that contact recruiters and apply to job postings.
package session

// Contact is a first-degree connection as returned by the network transport.
type Contact struct {
	ID       string
	Name     string
	Title    string
	Company  string
	Headline string
}

// JobPosting is a job search result. Description is plain text; transports
// strip any markup before returning it.
type JobPosting struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Description string
	ApplyURL    string
	EasyApply   bool
}

// JobQuery selects postings for an application batch. Keywords drive both the
// search and the compatibility score of each posting. MaxJobs of zero means
// no cap beyond the daily quota.
type JobQuery struct {
	Keywords      []string
	Location      string
	MaxJobs       int
	EasyApplyOnly bool
}

// Profile is the authenticated member's own profile.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Headline  string
}

// DisplayName returns the profile's full name for use in message templates.
func (p Profile) DisplayName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
