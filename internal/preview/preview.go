// Package preview 把 resume.Document 投影为只读的展示视图。
package preview

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"resumeBuilder/internal/resume"
)

// View 是渲染与导出的唯一数据来源。被省略的板块为 nil。
type View struct {
	PersonalInfo   resume.PersonalInfo
	Summary        string
	WorkExperience []WorkEntry
	Education      []EducationEntry
	Skills         []SkillGroup
	Certifications []CertificationEntry
	Projects       []ProjectEntry
	CustomSections []CustomEntry
	CoverLetter    *resume.CoverLetter
	Theme          resume.Theme
	Counts         Counts
}

// WorkEntry 一条可展示的工作经历。
type WorkEntry struct {
	Position      string
	Company       string
	Location      string
	Start         string
	End           string
	Period        string
	Current       bool
	Description   string
	Achievements  []string
	Collaborators []string
}

// EducationEntry 一条可展示的教育经历。
type EducationEntry struct {
	Institution string
	Heading     string
	Location    string
	Period      string
	GPA         string
	Honors      string
	Coursework  []string
}

// SkillGroup 一个非空技能分类。
type SkillGroup struct {
	Category string
	Label    string
	Skills   []string
}

// CertificationEntry 一条可展示的证书。
type CertificationEntry struct {
	Name             string
	Issuer           string
	Date             string
	Expires          string
	CredentialID     string
	VerificationLink string
}

// ProjectEntry 一个可展示的项目。
type ProjectEntry struct {
	Title         string
	Description   string
	TechStack     []string
	GitHubLink    string
	LiveLink      string
	Period        string
	Highlights    []string
	Collaborators []string
}

// CustomEntry 一个可展示的自定义板块。
type CustomEntry struct {
	Name    string
	Content string
	Items   []string
}

// Counts 各板块可展示条目数。
type Counts struct {
	WorkExperience int
	Education      int
	Skills         int
	Certifications int
	Projects       int
	CustomSections int
}

// Project 生成预览视图，不修改 doc。
func Project(doc resume.Document) View {
	v := View{
		PersonalInfo: doc.PersonalInfo,
		Summary:      strings.TrimSpace(doc.PersonalInfo.Summary),
		Theme:        doc.Theme,
	}

	for _, w := range doc.WorkExperience {
		if !displayable(w.Company) {
			continue
		}
		v.WorkExperience = append(v.WorkExperience, WorkEntry{
			Position:      w.Position,
			Company:       w.Company,
			Location:      w.Location,
			Start:         FormatDate(w.StartDate),
			End:           endLabel(w.EndDate, w.Current),
			Period:        FormatPeriod(w.StartDate, w.EndDate, w.Current),
			Current:       w.Current,
			Description:   w.Description,
			Achievements:  resume.CleanList(w.Achievements),
			Collaborators: resume.CleanList(w.Collaborators),
		})
	}

	for _, e := range doc.Education {
		if !displayable(e.Institution) {
			continue
		}
		v.Education = append(v.Education, EducationEntry{
			Institution: e.Institution,
			Heading:     educationHeading(e.Degree, e.Field),
			Location:    e.Location,
			Period:      FormatPeriod(e.StartDate, e.EndDate, false),
			GPA:         e.GPA,
			Honors:      e.Honors,
			Coursework:  resume.CleanList(e.Coursework),
		})
	}

	for _, category := range doc.Skills.Categories() {
		items := resume.CleanList(doc.Skills[category])
		if len(items) == 0 {
			continue
		}
		v.Skills = append(v.Skills, SkillGroup{
			Category: category,
			Label:    skillLabel(category),
			Skills:   items,
		})
		v.Counts.Skills += len(items)
	}

	for _, c := range doc.Certifications {
		if !displayable(c.Name) {
			continue
		}
		v.Certifications = append(v.Certifications, CertificationEntry{
			Name:             c.Name,
			Issuer:           c.Issuer,
			Date:             FormatDate(c.Date),
			Expires:          FormatDate(c.ExpiryDate),
			CredentialID:     c.CredentialID,
			VerificationLink: c.VerificationLink,
		})
	}

	for _, p := range doc.Projects {
		if !displayable(p.Title) {
			continue
		}
		v.Projects = append(v.Projects, ProjectEntry{
			Title:         p.Title,
			Description:   p.Description,
			TechStack:     resume.CleanList(p.TechStack),
			GitHubLink:    p.GitHubLink,
			LiveLink:      p.LiveLink,
			Period:        FormatPeriod(p.StartDate, p.EndDate, false),
			Highlights:    resume.CleanList(p.Highlights),
			Collaborators: resume.CleanList(p.Collaborators),
		})
	}

	for _, c := range doc.CustomSections {
		if !displayable(c.Name) {
			continue
		}
		v.CustomSections = append(v.CustomSections, CustomEntry{
			Name:    c.Name,
			Content: c.Content,
			Items:   resume.CleanList(c.Items),
		})
	}

	if cl := doc.CoverLetter; displayable(cl.Content) || displayable(cl.Title) {
		v.CoverLetter = &cl
	}

	v.Counts.WorkExperience = len(v.WorkExperience)
	v.Counts.Education = len(v.Education)
	v.Counts.Certifications = len(v.Certifications)
	v.Counts.Projects = len(v.Projects)
	v.Counts.CustomSections = len(v.CustomSections)
	return v
}

// 板块标题。
const (
	HeadingSummary        = "Professional Summary"
	HeadingWorkExperience = "Work Experience"
	HeadingEducation      = "Education"
	HeadingSkills         = "Skills"
	HeadingCertifications = "Certifications"
	HeadingProjects       = "Projects"
	HeadingCoverLetter    = "Cover Letter"
)

// Sections 按展示顺序返回当前可见的板块标题，自定义板块用自身名称。
func (v View) Sections() []string {
	var out []string
	if v.Summary != "" {
		out = append(out, HeadingSummary)
	}
	if len(v.WorkExperience) > 0 {
		out = append(out, HeadingWorkExperience)
	}
	if len(v.Education) > 0 {
		out = append(out, HeadingEducation)
	}
	if len(v.Skills) > 0 {
		out = append(out, HeadingSkills)
	}
	if len(v.Certifications) > 0 {
		out = append(out, HeadingCertifications)
	}
	if len(v.Projects) > 0 {
		out = append(out, HeadingProjects)
	}
	for _, c := range v.CustomSections {
		out = append(out, c.Name)
	}
	if v.CoverLetter != nil {
		out = append(out, HeadingCoverLetter)
	}
	return out
}

// Contacts 返回非空的联系方式，顺序固定。
func (v View) Contacts() []string {
	p := v.PersonalInfo
	return resume.CleanList([]string{p.Email, p.Phone, p.Address, p.LinkedIn, p.GitHub, p.Portfolio})
}

func displayable(primary string) bool {
	return strings.TrimSpace(primary) != ""
}

func endLabel(end string, current bool) string {
	if current {
		return PresentLabel
	}
	return FormatDate(end)
}

func educationHeading(degree, field string) string {
	degree = strings.TrimSpace(degree)
	field = strings.TrimSpace(field)
	switch {
	case degree != "" && field != "":
		return degree + " in " + field
	case degree != "":
		return degree
	default:
		return field
	}
}

func skillLabel(category string) string {
	r, size := utf8.DecodeRuneInString(category)
	if r == utf8.RuneError {
		return "Skills"
	}
	return string(unicode.ToUpper(r)) + category[size:] + " Skills"
}
