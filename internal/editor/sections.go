package editor

import (
	"fmt"
	"sort"

	"resumeBuilder/internal/resume"
)

// recordOps 操作单条记录板块（personalInfo / coverLetter / theme / skills）。
type recordOps interface {
	set(doc *resume.Document, name string, value any) error
}

// listOps 操作列表板块，实现都不会修改入参中已有的切片。
type listOps interface {
	length(doc *resume.Document) int
	kind(name string) (fieldKind, bool)
	get(doc *resume.Document, index int, name string) (any, error)
	set(doc *resume.Document, index int, name string, value any) error
	add(doc *resume.Document, item any) error
	replace(doc *resume.Document, items any) error
	remove(doc *resume.Document, index int) error
}

type recordSection[T any] struct {
	fields map[string]field[T]
	slot   func(*resume.Document) *T
}

func (s recordSection[T]) set(doc *resume.Document, name string, value any) error {
	f, ok := s.fields[name]
	if !ok {
		return unknownField(name)
	}
	rec := *s.slot(doc)
	if err := f.assign(&rec, name, value); err != nil {
		return err
	}
	*s.slot(doc) = rec
	return nil
}

type listSection[T any] struct {
	fields map[string]field[T]
	slot   func(*resume.Document) *[]T
	clone  func(T) T
	blank  func() T
}

func (s listSection[T]) length(doc *resume.Document) int { return len(*s.slot(doc)) }

func (s listSection[T]) kind(name string) (fieldKind, bool) {
	f, ok := s.fields[name]
	return f.kind, ok
}

func (s listSection[T]) get(doc *resume.Document, index int, name string) (any, error) {
	items := *s.slot(doc)
	if err := checkIndex(index, len(items)); err != nil {
		return nil, err
	}
	f, ok := s.fields[name]
	if !ok {
		return nil, unknownField(name)
	}
	rec := items[index]
	switch f.kind {
	case kindFlag:
		return *f.flag(&rec), nil
	case kindList:
		return append([]string{}, *f.list(&rec)...), nil
	default:
		return *f.text(&rec), nil
	}
}

func (s listSection[T]) set(doc *resume.Document, index int, name string, value any) error {
	items := *s.slot(doc)
	if err := checkIndex(index, len(items)); err != nil {
		return err
	}
	f, ok := s.fields[name]
	if !ok {
		return unknownField(name)
	}
	rec := items[index]
	if err := f.assign(&rec, name, value); err != nil {
		return err
	}
	next := make([]T, len(items))
	copy(next, items)
	next[index] = rec
	*s.slot(doc) = next
	return nil
}

func (s listSection[T]) add(doc *resume.Document, item any) error {
	rec, err := s.decode(item)
	if err != nil {
		return err
	}
	items := *s.slot(doc)
	next := make([]T, len(items), len(items)+1)
	copy(next, items)
	*s.slot(doc) = append(next, rec)
	return nil
}

func (s listSection[T]) replace(doc *resume.Document, items any) error {
	var next []T
	switch v := items.(type) {
	case []T:
		next = make([]T, 0, len(v))
		for _, item := range v {
			next = append(next, s.clone(item))
		}
	case []any:
		next = make([]T, 0, len(v))
		for _, item := range v {
			rec, err := s.decode(item)
			if err != nil {
				return err
			}
			next = append(next, rec)
		}
	case []map[string]any:
		next = make([]T, 0, len(v))
		for _, item := range v {
			rec, err := s.decode(item)
			if err != nil {
				return err
			}
			next = append(next, rec)
		}
	default:
		return fmt.Errorf("%w: cannot replace list with %T", ErrSchemaMismatch, items)
	}
	*s.slot(doc) = next
	return nil
}

func (s listSection[T]) remove(doc *resume.Document, index int) error {
	items := *s.slot(doc)
	if err := checkIndex(index, len(items)); err != nil {
		return err
	}
	next := make([]T, 0, len(items)-1)
	next = append(next, items[:index]...)
	next = append(next, items[index+1:]...)
	*s.slot(doc) = next
	return nil
}

// decode 接受记录本身、记录指针或字段 map。
func (s listSection[T]) decode(item any) (T, error) {
	switch v := item.(type) {
	case T:
		return s.clone(v), nil
	case *T:
		if v == nil {
			return s.blank(), fmt.Errorf("%w: nil record", ErrSchemaMismatch)
		}
		return s.clone(*v), nil
	case map[string]any:
		rec := s.blank()
		// 固定顺序，保证错误信息稳定
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			f, ok := s.fields[k]
			if !ok {
				return s.blank(), unknownField(k)
			}
			if err := f.assign(&rec, k, v[k]); err != nil {
				return s.blank(), err
			}
		}
		return rec, nil
	default:
		return s.blank(), fmt.Errorf("%w: unsupported item type %T", ErrSchemaMismatch, item)
	}
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, length)
	}
	return nil
}

func unknownField(name string) error {
	return fmt.Errorf("%w: unknown field %q", ErrSchemaMismatch, name)
}

var records = map[string]recordOps{
	resume.SectionPersonalInfo: recordSection[resume.PersonalInfo]{
		fields: personalInfoFields,
		slot:   func(d *resume.Document) *resume.PersonalInfo { return &d.PersonalInfo },
	},
	resume.SectionCoverLetter: recordSection[resume.CoverLetter]{
		fields: coverLetterFields,
		slot:   func(d *resume.Document) *resume.CoverLetter { return &d.CoverLetter },
	},
	resume.SectionTheme: recordSection[resume.Theme]{
		fields: themeFields,
		slot:   func(d *resume.Document) *resume.Theme { return &d.Theme },
	},
	resume.SectionSkills: skillsSection{},
}

var lists = map[string]listOps{
	resume.SectionWorkExperience: listSection[resume.WorkExperience]{
		fields: workExperienceFields,
		slot:   func(d *resume.Document) *[]resume.WorkExperience { return &d.WorkExperience },
		clone:  resume.WorkExperience.Clone,
		blank: func() resume.WorkExperience {
			return resume.WorkExperience{Achievements: []string{}, Collaborators: []string{}}
		},
	},
	resume.SectionEducation: listSection[resume.Education]{
		fields: educationFields,
		slot:   func(d *resume.Document) *[]resume.Education { return &d.Education },
		clone:  resume.Education.Clone,
		blank:  func() resume.Education { return resume.Education{Coursework: []string{}} },
	},
	resume.SectionCertifications: listSection[resume.Certification]{
		fields: certificationFields,
		slot:   func(d *resume.Document) *[]resume.Certification { return &d.Certifications },
		clone:  func(c resume.Certification) resume.Certification { return c },
		blank:  func() resume.Certification { return resume.Certification{} },
	},
	resume.SectionProjects: listSection[resume.Project]{
		fields: projectFields,
		slot:   func(d *resume.Document) *[]resume.Project { return &d.Projects },
		clone:  resume.Project.Clone,
		blank: func() resume.Project {
			return resume.Project{TechStack: []string{}, Collaborators: []string{}, Highlights: []string{}}
		},
	},
	resume.SectionCustomSections: listSection[resume.CustomSection]{
		fields: customSectionFields,
		slot:   func(d *resume.Document) *[]resume.CustomSection { return &d.CustomSections },
		clone:  resume.CustomSection.Clone,
		blank:  func() resume.CustomSection { return resume.CustomSection{Items: []string{}} },
	},
}

// skillsSection 的字段名就是分类名，值必须是字符串列表。
type skillsSection struct{}

func (skillsSection) set(doc *resume.Document, category string, value any) error {
	items, ok := toStringList(value)
	if !ok {
		return mismatch(category, kindList, value)
	}
	next := doc.Skills.Clone()
	if next == nil {
		next = resume.Skills{}
	}
	next[category] = resume.CleanList(items)
	doc.Skills = next
	return nil
}
