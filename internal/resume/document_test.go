package resume

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentShape(t *testing.T) {
	doc := NewDocument()

	assert.Len(t, doc.WorkExperience, 1)
	assert.Len(t, doc.Education, 1)
	assert.Len(t, doc.Certifications, 1)
	assert.Len(t, doc.Projects, 1)
	assert.Empty(t, doc.CustomSections)
	assert.NotNil(t, doc.CustomSections)
	assert.Empty(t, doc.Versions)
	assert.Equal(t, WorkExperience{Achievements: []string{}, Collaborators: []string{}}, doc.WorkExperience[0])
	assert.Equal(t, Skills{"technical": {}, "soft": {}, "languages": {}, "tools": {}}, doc.Skills)
	assert.True(t, doc.Skills.IsEmpty())
}

func TestDocumentMarshalEmitsEmptyLists(t *testing.T) {
	data, err := json.Marshal(Document{})
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"workExperience", "education", "certifications", "projects", "customSections", "versions"} {
		assert.Equal(t, "[]", string(raw[key]), key)
	}
	assert.Equal(t, "{}", string(raw["skills"]))
}

func TestDecodeLegacyShapes(t *testing.T) {
	payload := []byte(`{
		"personalInfo": {"name": "Ada"},
		"education": [{"institution": "MIT", "grade": "3.9"}],
		"certifications": [{"name": "CKA", "year": "2022"}],
		"projects": [{"title": "CLI", "githublink": "https://github.com/ada/cli"}],
		"skills": ["Go", " ", "SQL"],
		"theme": {"font": "Inter", "color": "blue", "layout": "single"}
	}`)

	doc, err := Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, "3.9", doc.Education[0].GPA)
	assert.Equal(t, "2022", doc.Certifications[0].Date)
	assert.Equal(t, "https://github.com/ada/cli", doc.Projects[0].GitHubLink)
	assert.Equal(t, Skills{CategoryGeneral: {"Go", "SQL"}}, doc.Skills)
	assert.Equal(t, Theme{FontFamily: "Inter", ColorScheme: "blue", Layout: "single"}, doc.Theme)
	assert.NotNil(t, doc.WorkExperience)
	assert.NotNil(t, doc.Projects[0].TechStack)
}

func TestDecodeGroupedSkills(t *testing.T) {
	doc, err := Decode([]byte(`{"skills": {"technical": ["Go", "go", "Rust"], "tools": "Docker, Git ,", " ": ["misc"]}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "Rust"}, doc.Skills["technical"])
	assert.Equal(t, []string{"Docker", "Git"}, doc.Skills["tools"])
	assert.Equal(t, []string{"misc"}, doc.Skills[CategoryGeneral])
	assert.Equal(t, []string{"technical", "tools", "general"}, doc.Skills.Categories())
	assert.Equal(t, []string{"Go", "Rust", "Docker", "Git", "misc"}, doc.Skills.Flatten())
}

func TestCloneIsDeep(t *testing.T) {
	doc := NewDocument()
	doc.WorkExperience[0].Achievements = []string{"shipped"}
	doc.Skills["technical"] = []string{"Go"}
	doc.Versions = []Version{{ID: "1", Data: NewDocument()}}

	clone := doc.Clone()
	clone.WorkExperience[0].Achievements[0] = "changed"
	clone.Skills["technical"][0] = "Rust"
	clone.Versions[0].Data.PersonalInfo.Name = "other"

	assert.Equal(t, "shipped", doc.WorkExperience[0].Achievements[0])
	assert.Equal(t, "Go", doc.Skills["technical"][0])
	assert.Empty(t, doc.Versions[0].Data.PersonalInfo.Name)
}

func TestCloneKeepsNilLists(t *testing.T) {
	doc := NewDocument()
	doc.Projects = []Project{{Title: "api"}}
	doc.WorkExperience[0].Collaborators = nil

	clone := doc.Clone()
	assert.Equal(t, doc, clone)
	assert.Nil(t, clone.Projects[0].Highlights)
	assert.Nil(t, clone.WorkExperience[0].Collaborators)
	assert.Nil(t, CloneStrings(nil))
	assert.Equal(t, []string{}, CloneStrings([]string{}))
}

func TestWithoutVersions(t *testing.T) {
	doc := NewDocument()
	doc.Versions = []Version{{ID: "1"}}

	stripped := doc.WithoutVersions()
	assert.Empty(t, stripped.Versions)
	assert.NotNil(t, stripped.Versions)
	assert.Len(t, doc.Versions, 1)
}

func TestSkillsMerge(t *testing.T) {
	base := NewSkills()
	merged := base.Merge("technical", "Go", " go ", "", "SQL")

	assert.Equal(t, []string{"Go", "SQL"}, merged["technical"])
	assert.Empty(t, base["technical"])

	general := Skills(nil).Merge("", "Writing")
	assert.Equal(t, []string{"Writing"}, general[CategoryGeneral])
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]byte(`{"personalInfo": {"name": "Ada"}, "skills": ["Go"]}`)))
	require.NoError(t, Validate([]byte(`{"skills": {"technical": ["Go"], "tools": "Git"}}`)))

	err := Validate([]byte(`{"projects": [{"title": "x", "techStack": "Go"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocument))

	err = Validate([]byte(`{"workExperience": {"company": "Acme"}}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}
