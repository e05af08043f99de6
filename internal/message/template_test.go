package message

import (
	"strings"
	"testing"
)

func TestRender_RecruiterMessage(t *testing.T) {
	ctx := RecruiterMessageContext{
		RecruiterName:    "Ann Lee",
		Company:          "Acme",
		UserName:         "Jane Doe",
		PersonalizedNote: "Your work on platform hiring caught my eye.",
	}

	got := Render("", DefaultRecruiterTemplate, ctx.Values())

	for _, want := range []string{"Hello Ann Lee", "talent acquisition at Acme", "caught my eye", "Best regards,\nJane Doe"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered message missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "{") {
		t.Errorf("unfilled placeholder left in message:\n%s", got)
	}
}

func TestRender_CustomTemplateWins(t *testing.T) {
	ctx := RecruiterMessageContext{RecruiterName: "Ann", UserName: "Jane"}
	got := Render("Hi {recruiter_name}, -{user_name}", DefaultRecruiterTemplate, ctx.Values())
	if got != "Hi Ann, -Jane" {
		t.Errorf("got %q", got)
	}
}

func TestRender_EmptyNoteLeavesBlankLine(t *testing.T) {
	ctx := CoverNoteContext{Company: "Acme", UserName: "Jane"}
	got := Render("", DefaultCoverNoteTemplate, ctx.Values())
	if !strings.Contains(got, "Dear Hiring Team at Acme") {
		t.Errorf("missing greeting:\n%s", got)
	}
	if strings.Contains(got, "{personalized_note}") {
		t.Errorf("placeholder not cleared:\n%s", got)
	}
}
