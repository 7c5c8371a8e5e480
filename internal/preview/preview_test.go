package preview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/editor"
	"resumeBuilder/internal/resume"
)

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"2021-03-15":               "Mar 2021",
		"":                         "",
		"   ":                      "",
		"2020-01":                  "Jan 2020",
		"2019-11-30T10:00:00Z":     "Nov 2019",
		"2019-11-30T10:00:00.123Z": "Nov 2019",
		"2018":                     "Jan 2018",
		"sometime soon":            "sometime soon",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDate(in), "input %q", in)
	}
}

func TestFormatPeriod(t *testing.T) {
	assert.Equal(t, "Jan 2020 - Jan 2022", FormatPeriod("2020-01-01", "2022-01-01", false))
	assert.Equal(t, "Jan 2020 - Present", FormatPeriod("2020-01-01", "2022-01-01", true))
	assert.Equal(t, "Jan 2020", FormatPeriod("2020-01-01", "", false))
	assert.Equal(t, "Present", FormatPeriod("", "", true))
	assert.Equal(t, "", FormatPeriod("", "", false))
}

func TestWorkExperienceVisibility(t *testing.T) {
	doc := resume.NewDocument()
	doc.WorkExperience = []resume.WorkExperience{{Position: "Engineer"}, {Company: "  "}}

	view := Project(doc)
	assert.Nil(t, view.WorkExperience)
	assert.NotContains(t, view.Sections(), HeadingWorkExperience)

	doc.WorkExperience = append(doc.WorkExperience, resume.WorkExperience{Company: "Acme"})
	view = Project(doc)
	require.Len(t, view.WorkExperience, 1)
	assert.Equal(t, "Acme", view.WorkExperience[0].Company)
	assert.Contains(t, view.Sections(), HeadingWorkExperience)
	assert.Equal(t, 1, view.Counts.WorkExperience)
}

func TestAppendThenProject(t *testing.T) {
	doc := resume.NewDocument()

	next, err := editor.AppendListItem(doc, resume.SectionWorkExperience, map[string]any{
		"company":       "Acme",
		"position":      "Engineer",
		"startDate":     "2020-01-01",
		"endDate":       "2022-01-01",
		"current":       false,
		"description":   "",
		"achievements":  []any{},
		"collaborators": []any{},
	})
	require.NoError(t, err)

	view := Project(next)
	require.Len(t, view.WorkExperience, 1)
	entry := view.WorkExperience[0]
	assert.Equal(t, "Engineer", entry.Position)
	assert.Equal(t, "Acme", entry.Company)
	assert.Equal(t, "Jan 2020 - Jan 2022", entry.Period)
}

func TestCurrentRendersPresent(t *testing.T) {
	doc := resume.NewDocument()
	doc.WorkExperience = []resume.WorkExperience{{
		Company:   "Acme",
		StartDate: "2021-03-15",
		EndDate:   "2023-05-01",
		Current:   true,
	}}

	entry := Project(doc).WorkExperience[0]
	assert.Equal(t, "Mar 2021", entry.Start)
	assert.Equal(t, PresentLabel, entry.End)
	assert.Equal(t, "Mar 2021 - Present", entry.Period)
}

func TestDefaultDocumentHasNoSections(t *testing.T) {
	view := Project(resume.NewDocument())

	assert.Empty(t, view.Sections())
	assert.Nil(t, view.Skills)
	assert.Nil(t, view.CoverLetter)
	assert.Equal(t, Counts{}, view.Counts)
}

func TestProjectSectionsAndLabels(t *testing.T) {
	doc := resume.NewDocument()
	doc.PersonalInfo = resume.PersonalInfo{Name: "Ada", Email: "ada@example.com", Phone: "555", Summary: " Builder "}
	doc.Education = []resume.Education{{Institution: "MIT", Degree: "BSc", Field: "Mathematics", GPA: "3.9"}}
	doc.Skills = resume.Skills{"technical": {"Go", "SQL"}, "soft": {}, "languages": {"English"}}
	doc.Certifications = []resume.Certification{{Name: "CKA", Date: "2022-06-01", ExpiryDate: "2025-06-01"}, {Issuer: "nobody"}}
	doc.Projects = []resume.Project{{Title: "Engine", TechStack: []string{"Go", ""}, StartDate: "2020-02-01"}}
	doc.CustomSections = []resume.CustomSection{{ID: "c1", Name: "Talks", Items: []string{"GopherCon"}}, {ID: "c2"}}
	doc.CoverLetter = resume.CoverLetter{Content: "Dear team"}

	view := Project(doc)

	assert.Equal(t, []string{
		HeadingSummary, HeadingEducation, HeadingSkills, HeadingCertifications, HeadingProjects, "Talks", HeadingCoverLetter,
	}, view.Sections())
	assert.Equal(t, "Builder", view.Summary)
	assert.Equal(t, "BSc in Mathematics", view.Education[0].Heading)
	require.Len(t, view.Skills, 2)
	assert.Equal(t, SkillGroup{Category: "technical", Label: "Technical Skills", Skills: []string{"Go", "SQL"}}, view.Skills[0])
	assert.Equal(t, "Languages Skills", view.Skills[1].Label)
	assert.Equal(t, 3, view.Counts.Skills)
	require.Len(t, view.Certifications, 1)
	assert.Equal(t, "Jun 2022", view.Certifications[0].Date)
	assert.Equal(t, "Jun 2025", view.Certifications[0].Expires)
	assert.Equal(t, []string{"Go"}, view.Projects[0].TechStack)
	assert.Equal(t, "Feb 2020", view.Projects[0].Period)
	assert.Equal(t, 1, view.Counts.CustomSections)
	assert.Equal(t, []string{"ada@example.com", "555"}, view.Contacts())
}

func TestProjectDoesNotMutate(t *testing.T) {
	doc := resume.NewDocument()
	doc.Projects = []resume.Project{{Title: "Engine", TechStack: []string{" Go "}}}
	before := doc.Clone()

	view := Project(doc)
	view.Projects[0].TechStack[0] = "changed"

	assert.Equal(t, before, doc)
}

func TestLegacyCertificationYear(t *testing.T) {
	var doc resume.Document
	require.NoError(t, json.Unmarshal([]byte(`{"certifications":[{"name":"CKA","year":"2021"}]}`), &doc))

	view := Project(doc)
	require.Len(t, view.Certifications, 1)
	assert.Equal(t, "Jan 2021", view.Certifications[0].Date)
}
