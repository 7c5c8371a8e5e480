package resume

import "time"

// Section 名称，与 JSON 字段保持一致。
const (
	SectionPersonalInfo   = "personalInfo"
	SectionWorkExperience = "workExperience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionCertifications = "certifications"
	SectionProjects       = "projects"
	SectionCoverLetter    = "coverLetter"
	SectionTheme          = "theme"
	SectionCustomSections = "customSections"
	SectionVersions       = "versions"
)

// Document 表示一份完整的简历。
type Document struct {
	PersonalInfo   PersonalInfo     `json:"personalInfo"`
	WorkExperience []WorkExperience `json:"workExperience"`
	Education      []Education      `json:"education"`
	Skills         Skills           `json:"skills"`
	Certifications []Certification  `json:"certifications"`
	Projects       []Project        `json:"projects"`
	CoverLetter    CoverLetter      `json:"coverLetter"`
	Theme          Theme            `json:"theme"`
	CustomSections []CustomSection  `json:"customSections"`
	Versions       []Version        `json:"versions"`
}

// PersonalInfo 联系方式与个人简介。
type PersonalInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Portfolio string `json:"portfolio"`
	Summary   string `json:"summary"`
}

// WorkExperience 一段工作经历，Company 为主键字段。
type WorkExperience struct {
	Company       string   `json:"company"`
	Position      string   `json:"position"`
	Location      string   `json:"location"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	Current       bool     `json:"current"`
	Description   string   `json:"description"`
	Achievements  []string `json:"achievements"`
	Collaborators []string `json:"collaborators"`
}

// Education 一段教育经历，Institution 为主键字段。
type Education struct {
	Institution string   `json:"institution"`
	Degree      string   `json:"degree"`
	Field       string   `json:"field"`
	Location    string   `json:"location"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	GPA         string   `json:"gpa"`
	Honors      string   `json:"honors"`
	Coursework  []string `json:"coursework"`
}

// Certification 证书，Name 为主键字段。
type Certification struct {
	Name             string `json:"name"`
	Issuer           string `json:"issuer"`
	Date             string `json:"date"`
	ExpiryDate       string `json:"expiryDate"`
	CredentialID     string `json:"credentialId"`
	VerificationLink string `json:"verificationLink"`
}

// Project 项目经历，Title 为主键字段。
type Project struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	TechStack     []string `json:"techStack"`
	GitHubLink    string   `json:"githubLink"`
	LiveLink      string   `json:"liveLink"`
	Collaborators []string `json:"collaborators"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	Highlights    []string `json:"highlights"`
}

// CoverLetter 求职信。
type CoverLetter struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	TargetCompany  string `json:"targetCompany"`
	TargetPosition string `json:"targetPosition"`
}

// Theme 只保存不透明的样式标识，业务逻辑不解析其取值。
type Theme struct {
	Template    string `json:"template"`
	ColorScheme string `json:"colorScheme"`
	FontFamily  string `json:"fontFamily"`
	Layout      string `json:"layout"`
}

// CustomSection 用户自定义板块，Name 为主键字段。
type CustomSection struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Content string   `json:"content"`
	Items   []string `json:"items"`
}

// Version 是某一时刻 Document 的不可变快照。
type Version struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Data      Document  `json:"data"`
}

// NewDocument 返回一份结构完整的空白简历：每个列表板块各有一条空记录。
func NewDocument() Document {
	return Document{
		WorkExperience: []WorkExperience{{Achievements: []string{}, Collaborators: []string{}}},
		Education:      []Education{{Coursework: []string{}}},
		Skills:         NewSkills(),
		Certifications: []Certification{{}},
		Projects: []Project{{
			TechStack:     []string{},
			Collaborators: []string{},
			Highlights:    []string{},
		}},
		CustomSections: []CustomSection{},
		Versions:       []Version{},
	}
}

// Clone 深拷贝，返回值与原 Document 不共享任何切片或 map。
func (d Document) Clone() Document {
	out := d
	out.WorkExperience = cloneEach(d.WorkExperience, WorkExperience.Clone)
	out.Education = cloneEach(d.Education, Education.Clone)
	out.Skills = d.Skills.Clone()
	out.Certifications = cloneEach(d.Certifications, func(c Certification) Certification { return c })
	out.Projects = cloneEach(d.Projects, Project.Clone)
	out.CustomSections = cloneEach(d.CustomSections, CustomSection.Clone)
	out.Versions = cloneEach(d.Versions, func(v Version) Version {
		v.Data = v.Data.Clone()
		return v
	})
	return out
}

// Normalize 把所有 nil 列表替换为空列表，并整理 skills。
func (d Document) Normalize() Document {
	d = d.Clone()
	d.WorkExperience = nonNil(d.WorkExperience)
	for i := range d.WorkExperience {
		d.WorkExperience[i].Achievements = nonNil(d.WorkExperience[i].Achievements)
		d.WorkExperience[i].Collaborators = nonNil(d.WorkExperience[i].Collaborators)
	}
	d.Education = nonNil(d.Education)
	for i := range d.Education {
		d.Education[i].Coursework = nonNil(d.Education[i].Coursework)
	}
	d.Skills = d.Skills.Normalize()
	d.Certifications = nonNil(d.Certifications)
	d.Projects = nonNil(d.Projects)
	for i := range d.Projects {
		d.Projects[i].TechStack = nonNil(d.Projects[i].TechStack)
		d.Projects[i].Collaborators = nonNil(d.Projects[i].Collaborators)
		d.Projects[i].Highlights = nonNil(d.Projects[i].Highlights)
	}
	d.CustomSections = nonNil(d.CustomSections)
	for i := range d.CustomSections {
		d.CustomSections[i].Items = nonNil(d.CustomSections[i].Items)
	}
	d.Versions = nonNil(d.Versions)
	for i := range d.Versions {
		d.Versions[i].Data = d.Versions[i].Data.Normalize()
	}
	return d
}

// WithoutVersions 返回不含版本列表的深拷贝，供快照与持久化使用。
func (d Document) WithoutVersions() Document {
	out := d
	out.Versions = nil
	out = out.Clone()
	out.Versions = []Version{}
	return out
}

// Clone 深拷贝一条工作经历。
func (w WorkExperience) Clone() WorkExperience {
	w.Achievements = CloneStrings(w.Achievements)
	w.Collaborators = CloneStrings(w.Collaborators)
	return w
}

// Clone 深拷贝一条教育经历。
func (e Education) Clone() Education {
	e.Coursework = CloneStrings(e.Coursework)
	return e
}

// Clone 深拷贝一个项目。
func (p Project) Clone() Project {
	p.TechStack = CloneStrings(p.TechStack)
	p.Collaborators = CloneStrings(p.Collaborators)
	p.Highlights = CloneStrings(p.Highlights)
	return p
}

// Clone 深拷贝一个自定义板块。
func (c CustomSection) Clone() CustomSection {
	c.Items = CloneStrings(c.Items)
	return c
}

// CloneStrings 复制字符串切片，nil 保持为 nil。
func CloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneEach[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, item := range in {
		out[i] = clone(item)
	}
	return out
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
