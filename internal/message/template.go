// Package message renders outreach text from templates. Placeholders use the
// {key} form and are filled from typed contexts; generated personalization
// arrives as one more placeholder value.
package message

import "github.com/jonypilatti/linkedinbot/internal/llm"

// DefaultRecruiterTemplate is the outreach message sent to recruiters when no
// custom template is configured.
const DefaultRecruiterTemplate = `Hello {recruiter_name},

I hope this message finds you well. I came across your profile and noticed you work in talent acquisition at {company}.

{personalized_note}

I would love to connect and learn about opportunities that might match my background.

Best regards,
{user_name}`

// DefaultCoverNoteTemplate frames the generated note attached to a job
// application.
const DefaultCoverNoteTemplate = `Dear Hiring Team at {company},

{personalized_note}

Thank you for your consideration.

{user_name}`

// RecruiterMessageContext carries the values available to a recruiter
// outreach template.
type RecruiterMessageContext struct {
	RecruiterName    string
	Company          string
	UserName         string
	PersonalizedNote string
}

// Values returns the placeholder map for template rendering.
func (c RecruiterMessageContext) Values() map[string]string {
	return map[string]string{
		"recruiter_name":    c.RecruiterName,
		"company":           c.Company,
		"user_name":         c.UserName,
		"personalized_note": c.PersonalizedNote,
	}
}

// CoverNoteContext carries the values available to a cover note template.
type CoverNoteContext struct {
	Company          string
	JobTitle         string
	UserName         string
	PersonalizedNote string
}

// Values returns the placeholder map for template rendering.
func (c CoverNoteContext) Values() map[string]string {
	return map[string]string{
		"company":           c.Company,
		"job_title":         c.JobTitle,
		"user_name":         c.UserName,
		"personalized_note": c.PersonalizedNote,
	}
}

// Render fills template with the context's values. An empty template falls
// back to fallback.
func Render(template, fallback string, values map[string]string) string {
	if template == "" {
		template = fallback
	}
	return llm.FillTemplate(template, values)
}
