// Package export 把简历序列化为纯文本或 HTML，HTML 页面交给外部渲染器生成 PDF。
package export

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"resumeBuilder/internal/preview"
	"resumeBuilder/internal/resume"
)

// Format 序列化格式。
type Format string

const (
	FormatPlainText    Format = "plain-text"
	FormatHTMLFragment Format = "html-fragment"
)

// ErrUnknownFormat 不支持的格式。
var ErrUnknownFormat = errors.New("unknown export format")

const defaultName = "Your Name"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("export").Funcs(template.FuncMap{
	"join":        func(items []string) string { return strings.Join(items, ", ") },
	"displayName": displayName,
}).ParseFS(templateFS, "templates/*.html"))

// ParseFormat 解析格式名，大小写不敏感。
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatPlainText, "text", "txt":
		return FormatPlainText, nil
	case FormatHTMLFragment, "html":
		return FormatHTMLFragment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Serialize 按 format 序列化 doc。
func Serialize(doc resume.Document, format Format) (string, error) {
	view := preview.Project(doc)
	switch format {
	case FormatPlainText:
		return PlainText(view), nil
	case FormatHTMLFragment:
		return HTMLFragment(view)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// HTMLFragment 渲染不含 <html> 外壳的片段。
func HTMLFragment(view preview.View) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "fragment", view); err != nil {
		return "", fmt.Errorf("render html fragment: %w", err)
	}
	return buf.String(), nil
}

type pageData struct {
	View   preview.View
	Font   template.CSS
	Accent template.CSS
}

// HTMLDocument 渲染可直接打印的完整页面，字体与主色取自 theme。
func HTMLDocument(doc resume.Document) (string, error) {
	view := preview.Project(doc)
	data := pageData{
		View:   view,
		Font:   cssValue(view.Theme.FontFamily, "Helvetica, Arial, sans-serif"),
		Accent: cssValue(accentColor(view.Theme.ColorScheme), "#2563eb"),
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "page", data); err != nil {
		return "", fmt.Errorf("render html document: %w", err)
	}
	return buf.String(), nil
}

// PlainText 渲染纯文本：姓名、联系方式，之后每个可见板块一段，技能每行一个。
func PlainText(view preview.View) string {
	var b strings.Builder
	p := view.PersonalInfo

	b.WriteString(displayName(p.Name))
	b.WriteString("\n")
	writeLine(&b, "Email", p.Email)
	writeLine(&b, "Phone", p.Phone)
	writeLine(&b, "Address", p.Address)
	writeLine(&b, "LinkedIn", p.LinkedIn)
	writeLine(&b, "GitHub", p.GitHub)
	writeLine(&b, "Portfolio", p.Portfolio)

	if view.Summary != "" {
		heading(&b, preview.HeadingSummary)
		b.WriteString(view.Summary + "\n")
	}

	if len(view.WorkExperience) > 0 {
		heading(&b, preview.HeadingWorkExperience)
		for _, w := range view.WorkExperience {
			b.WriteString(joinNonEmpty(" at ", w.Position, w.Company))
			if w.Period != "" {
				b.WriteString(" (" + w.Period + ")")
			}
			b.WriteString("\n")
			writeIndented(&b, w.Description)
			writeBullets(&b, w.Achievements)
		}
	}

	if len(view.Education) > 0 {
		heading(&b, preview.HeadingEducation)
		for _, e := range view.Education {
			b.WriteString(joinNonEmpty(", ", e.Heading, e.Institution))
			if e.Period != "" {
				b.WriteString(" (" + e.Period + ")")
			}
			b.WriteString("\n")
			if e.GPA != "" {
				writeIndented(&b, "GPA: "+e.GPA)
			}
			writeIndented(&b, e.Honors)
		}
	}

	if len(view.Skills) > 0 {
		heading(&b, preview.HeadingSkills)
		for _, group := range view.Skills {
			for _, skill := range group.Skills {
				b.WriteString(skill + "\n")
			}
		}
	}

	if len(view.Certifications) > 0 {
		heading(&b, preview.HeadingCertifications)
		for _, c := range view.Certifications {
			b.WriteString(joinNonEmpty(" - ", c.Name, c.Issuer))
			if c.Date != "" {
				b.WriteString(" (" + c.Date + ")")
			}
			b.WriteString("\n")
			if c.Expires != "" {
				writeIndented(&b, "Expires: "+c.Expires)
			}
		}
	}

	if len(view.Projects) > 0 {
		heading(&b, preview.HeadingProjects)
		for _, p := range view.Projects {
			b.WriteString(p.Title)
			if len(p.TechStack) > 0 {
				b.WriteString(" [" + strings.Join(p.TechStack, ", ") + "]")
			}
			b.WriteString("\n")
			writeIndented(&b, p.Description)
			writeBullets(&b, p.Highlights)
		}
	}

	for _, c := range view.CustomSections {
		heading(&b, c.Name)
		if c.Content != "" {
			b.WriteString(c.Content + "\n")
		}
		writeBullets(&b, c.Items)
	}

	if view.CoverLetter != nil {
		heading(&b, preview.HeadingCoverLetter)
		b.WriteString(view.CoverLetter.Content + "\n")
	}

	return b.String()
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return defaultName
	}
	return name
}

func heading(b *strings.Builder, title string) {
	b.WriteString("\n" + strings.ToUpper(title) + "\n")
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label + ": " + value + "\n")
}

func writeIndented(b *strings.Builder, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString("  " + value + "\n")
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("  - " + item + "\n")
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	return strings.Join(resume.CleanList(parts), sep)
}

var safeCSSValue = regexp.MustCompile(`^[A-Za-z0-9 ,#.\-]+$`)

func cssValue(raw, fallback string) template.CSS {
	raw = strings.TrimSpace(raw)
	if raw == "" || !safeCSSValue.MatchString(raw) {
		return template.CSS(fallback)
	}
	return template.CSS(raw)
}

// 主题色名到颜色值，未知名称按原值当作 CSS 颜色。
var colorSchemes = map[string]string{
	"blue":   "#2563eb",
	"green":  "#059669",
	"purple": "#7c3aed",
	"red":    "#dc2626",
	"gray":   "#374151",
	"orange": "#ea580c",
}

func accentColor(scheme string) string {
	if c, ok := colorSchemes[strings.ToLower(strings.TrimSpace(scheme))]; ok {
		return c
	}
	return scheme
}
