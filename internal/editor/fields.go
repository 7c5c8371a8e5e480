package editor

import (
	"fmt"

	"resumeBuilder/internal/resume"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindFlag
	kindList
)

func (k fieldKind) String() string {
	switch k {
	case kindFlag:
		return "bool"
	case kindList:
		return "list of strings"
	default:
		return "string"
	}
}

// field 把字段名绑定到记录类型 T 的具体成员。
type field[T any] struct {
	kind fieldKind
	text func(*T) *string
	flag func(*T) *bool
	list func(*T) *[]string
}

func text[T any](get func(*T) *string) field[T] { return field[T]{kind: kindText, text: get} }
func flag[T any](get func(*T) *bool) field[T]   { return field[T]{kind: kindFlag, flag: get} }
func list[T any](get func(*T) *[]string) field[T] {
	return field[T]{kind: kindList, list: get}
}

func (f field[T]) assign(rec *T, name string, value any) error {
	switch f.kind {
	case kindText:
		s, ok := value.(string)
		if !ok {
			return mismatch(name, f.kind, value)
		}
		*f.text(rec) = s
	case kindFlag:
		b, ok := value.(bool)
		if !ok {
			return mismatch(name, f.kind, value)
		}
		*f.flag(rec) = b
	case kindList:
		items, ok := toStringList(value)
		if !ok {
			return mismatch(name, f.kind, value)
		}
		*f.list(rec) = items
	}
	return nil
}

func mismatch(name string, want fieldKind, got any) error {
	return fmt.Errorf("%w: field %q expects %s, got %T", ErrSchemaMismatch, name, want, got)
}

// toStringList 接受 []string 或元素全为 string 的 []any，并总是返回新切片。
func toStringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

var personalInfoFields = map[string]field[resume.PersonalInfo]{
	"name":      text(func(p *resume.PersonalInfo) *string { return &p.Name }),
	"email":     text(func(p *resume.PersonalInfo) *string { return &p.Email }),
	"phone":     text(func(p *resume.PersonalInfo) *string { return &p.Phone }),
	"address":   text(func(p *resume.PersonalInfo) *string { return &p.Address }),
	"linkedin":  text(func(p *resume.PersonalInfo) *string { return &p.LinkedIn }),
	"github":    text(func(p *resume.PersonalInfo) *string { return &p.GitHub }),
	"portfolio": text(func(p *resume.PersonalInfo) *string { return &p.Portfolio }),
	"summary":   text(func(p *resume.PersonalInfo) *string { return &p.Summary }),
}

var coverLetterFields = map[string]field[resume.CoverLetter]{
	"title":          text(func(c *resume.CoverLetter) *string { return &c.Title }),
	"content":        text(func(c *resume.CoverLetter) *string { return &c.Content }),
	"targetCompany":  text(func(c *resume.CoverLetter) *string { return &c.TargetCompany }),
	"targetPosition": text(func(c *resume.CoverLetter) *string { return &c.TargetPosition }),
}

var themeFields = map[string]field[resume.Theme]{
	"template":    text(func(t *resume.Theme) *string { return &t.Template }),
	"colorScheme": text(func(t *resume.Theme) *string { return &t.ColorScheme }),
	"fontFamily":  text(func(t *resume.Theme) *string { return &t.FontFamily }),
	"layout":      text(func(t *resume.Theme) *string { return &t.Layout }),
}

var workExperienceFields = map[string]field[resume.WorkExperience]{
	"company":       text(func(w *resume.WorkExperience) *string { return &w.Company }),
	"position":      text(func(w *resume.WorkExperience) *string { return &w.Position }),
	"location":      text(func(w *resume.WorkExperience) *string { return &w.Location }),
	"startDate":     text(func(w *resume.WorkExperience) *string { return &w.StartDate }),
	"endDate":       text(func(w *resume.WorkExperience) *string { return &w.EndDate }),
	"current":       flag(func(w *resume.WorkExperience) *bool { return &w.Current }),
	"description":   text(func(w *resume.WorkExperience) *string { return &w.Description }),
	"achievements":  list(func(w *resume.WorkExperience) *[]string { return &w.Achievements }),
	"collaborators": list(func(w *resume.WorkExperience) *[]string { return &w.Collaborators }),
}

var educationFields = map[string]field[resume.Education]{
	"institution": text(func(e *resume.Education) *string { return &e.Institution }),
	"degree":      text(func(e *resume.Education) *string { return &e.Degree }),
	"field":       text(func(e *resume.Education) *string { return &e.Field }),
	"location":    text(func(e *resume.Education) *string { return &e.Location }),
	"startDate":   text(func(e *resume.Education) *string { return &e.StartDate }),
	"endDate":     text(func(e *resume.Education) *string { return &e.EndDate }),
	"gpa":         text(func(e *resume.Education) *string { return &e.GPA }),
	"honors":      text(func(e *resume.Education) *string { return &e.Honors }),
	"coursework":  list(func(e *resume.Education) *[]string { return &e.Coursework }),
}

var certificationFields = map[string]field[resume.Certification]{
	"name":             text(func(c *resume.Certification) *string { return &c.Name }),
	"issuer":           text(func(c *resume.Certification) *string { return &c.Issuer }),
	"date":             text(func(c *resume.Certification) *string { return &c.Date }),
	"expiryDate":       text(func(c *resume.Certification) *string { return &c.ExpiryDate }),
	"credentialId":     text(func(c *resume.Certification) *string { return &c.CredentialID }),
	"verificationLink": text(func(c *resume.Certification) *string { return &c.VerificationLink }),
}

var projectFields = map[string]field[resume.Project]{
	"title":         text(func(p *resume.Project) *string { return &p.Title }),
	"description":   text(func(p *resume.Project) *string { return &p.Description }),
	"techStack":     list(func(p *resume.Project) *[]string { return &p.TechStack }),
	"githubLink":    text(func(p *resume.Project) *string { return &p.GitHubLink }),
	"liveLink":      text(func(p *resume.Project) *string { return &p.LiveLink }),
	"collaborators": list(func(p *resume.Project) *[]string { return &p.Collaborators }),
	"startDate":     text(func(p *resume.Project) *string { return &p.StartDate }),
	"endDate":       text(func(p *resume.Project) *string { return &p.EndDate }),
	"highlights":    list(func(p *resume.Project) *[]string { return &p.Highlights }),
}

var customSectionFields = map[string]field[resume.CustomSection]{
	"id":      text(func(c *resume.CustomSection) *string { return &c.ID }),
	"name":    text(func(c *resume.CustomSection) *string { return &c.Name }),
	"content": text(func(c *resume.CustomSection) *string { return &c.Content }),
	"items":   list(func(c *resume.CustomSection) *[]string { return &c.Items }),
}
