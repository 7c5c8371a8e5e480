package resume

import (
	"sort"
	"strings"
)

// 默认技能分类。扁平列表统一归入 CategoryGeneral。
const (
	CategoryTechnical = "technical"
	CategorySoft      = "soft"
	CategoryLanguages = "languages"
	CategoryTools     = "tools"
	CategoryGeneral   = "general"
)

// DefaultCategories 是新建简历时的分类及其展示顺序。
var DefaultCategories = []string{CategoryTechnical, CategorySoft, CategoryLanguages, CategoryTools}

// Skills 分类 -> 技能列表。
type Skills map[string][]string

// NewSkills 返回包含全部默认分类的空技能表。
func NewSkills() Skills {
	s := make(Skills, len(DefaultCategories))
	for _, category := range DefaultCategories {
		s[category] = []string{}
	}
	return s
}

// SkillsFromList 把扁平列表转换为 general 分类。
func SkillsFromList(items []string) Skills {
	return Skills{CategoryGeneral: CleanList(items)}
}

// Clone 深拷贝。
func (s Skills) Clone() Skills {
	if s == nil {
		return nil
	}
	out := make(Skills, len(s))
	for category, items := range s {
		out[category] = CloneStrings(items)
	}
	return out
}

// Normalize trims categories and entries, drops blanks and duplicates.
func (s Skills) Normalize() Skills {
	out := make(Skills, len(s))
	for category, items := range s {
		key := strings.TrimSpace(category)
		if key == "" {
			key = CategoryGeneral
		}
		out[key] = mergeUnique(out[key], items)
	}
	return out
}

// Categories 返回分类名：默认分类在前，其余按字母序。
func (s Skills) Categories() []string {
	known := make(map[string]bool, len(DefaultCategories))
	out := make([]string, 0, len(s))
	for _, category := range DefaultCategories {
		known[category] = true
		if _, ok := s[category]; ok {
			out = append(out, category)
		}
	}
	var extra []string
	for category := range s {
		if !known[category] {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Flatten 按分类顺序返回全部技能。
func (s Skills) Flatten() []string {
	var out []string
	for _, category := range s.Categories() {
		out = append(out, s[category]...)
	}
	return out
}

// IsEmpty 所有分类都没有技能时为 true。
func (s Skills) IsEmpty() bool {
	for _, items := range s {
		if len(items) > 0 {
			return false
		}
	}
	return true
}

// CleanList trims every entry and drops the empty ones.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func mergeUnique(base, extra []string) []string {
	out := append(make([]string, 0, len(base)+len(extra)), base...)
	seen := make(map[string]bool, len(out)+len(extra))
	for _, item := range out {
		seen[strings.ToLower(item)] = true
	}
	for _, item := range CleanList(extra) {
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// Merge 把 extra 合并进 category，返回新的 Skills。
func (s Skills) Merge(category string, extra ...string) Skills {
	out := s.Clone()
	if out == nil {
		out = Skills{}
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = CategoryGeneral
	}
	out[category] = mergeUnique(out[category], extra)
	return out
}
