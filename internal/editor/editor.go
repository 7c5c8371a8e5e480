// Package editor 提供对 resume.Document 的纯函数式修改：入参永远不被改写，
// 每个操作都返回一份新的 Document。
package editor

import (
	"errors"
	"fmt"
	"strings"

	"resumeBuilder/internal/resume"
)

var (
	// ErrInvalidSection 板块不存在，或板块形态与操作不符。
	ErrInvalidSection = errors.New("invalid section")
	// ErrIndexOutOfRange 列表下标越界。
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrSchemaMismatch 字段不存在或取值类型不符。
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// NestedListFields 是列表板块中本身为字符串列表的字段。
var NestedListFields = []string{"techStack", "achievements", "coursework", "collaborators", "highlights"}

// SetScalarField 修改记录型板块的一个字段。skills 板块的字段名即分类名。
func SetScalarField(doc resume.Document, section, name string, value any) (resume.Document, error) {
	ops, err := recordFor(section)
	if err != nil {
		return doc, err
	}
	next := doc
	if err := ops.set(&next, name, value); err != nil {
		return doc, err
	}
	return next, nil
}

// SetListItemField 修改列表板块中第 index 条记录的一个字段。
func SetListItemField(doc resume.Document, section string, index int, name string, value any) (resume.Document, error) {
	ops, err := listFor(section)
	if err != nil {
		return doc, err
	}
	next := doc
	if err := ops.set(&next, index, name, value); err != nil {
		return doc, err
	}
	return next, nil
}

// AppendListItem 在列表末尾追加一条记录，item 可以是记录值、记录指针或 map[string]any。
func AppendListItem(doc resume.Document, section string, item any) (resume.Document, error) {
	ops, err := listFor(section)
	if err != nil {
		return doc, err
	}
	next := doc
	if err := ops.add(&next, item); err != nil {
		return doc, err
	}
	return next, nil
}

// RemoveListItem 删除第 index 条记录；允许删掉最后一条，板块变为空列表。
func RemoveListItem(doc resume.Document, section string, index int) (resume.Document, error) {
	ops, err := listFor(section)
	if err != nil {
		return doc, err
	}
	next := doc
	if err := ops.remove(&next, index); err != nil {
		return doc, err
	}
	return next, nil
}

// ReplaceSection 用 items 整体替换一个列表板块。
func ReplaceSection(doc resume.Document, section string, items any) (resume.Document, error) {
	ops, err := listFor(section)
	if err != nil {
		return doc, err
	}
	next := doc
	if err := ops.replace(&next, items); err != nil {
		return doc, err
	}
	return next, nil
}

// SetNestedListField 整体替换记录中的字符串列表字段，例如 techStack。
func SetNestedListField(doc resume.Document, section string, index int, name string, values []string) (resume.Document, error) {
	ops, err := listFor(section)
	if err != nil {
		return doc, err
	}
	if err := requireListField(ops, name); err != nil {
		return doc, err
	}
	next := doc
	if err := ops.set(&next, index, name, values); err != nil {
		return doc, err
	}
	return next, nil
}

// SetNestedListFromText 解析逗号分隔的输入后写入字符串列表字段。
func SetNestedListFromText(doc resume.Document, section string, index int, name, raw string) (resume.Document, error) {
	return SetNestedListField(doc, section, index, name, SplitCommaList(raw))
}

// AppendTag 向字符串列表字段追加一个标签，空白或重复标签不生效。
func AppendTag(doc resume.Document, section string, index int, name, tag string) (resume.Document, error) {
	current, err := nestedList(doc, section, index, name)
	if err != nil {
		return doc, err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return doc, nil
	}
	for _, existing := range current {
		if existing == tag {
			return doc, nil
		}
	}
	return SetNestedListField(doc, section, index, name, append(current, tag))
}

// RemoveTag 删除字符串列表字段中的全部 tag。
func RemoveTag(doc resume.Document, section string, index int, name, tag string) (resume.Document, error) {
	current, err := nestedList(doc, section, index, name)
	if err != nil {
		return doc, err
	}
	kept := current[:0]
	for _, existing := range current {
		if existing != tag {
			kept = append(kept, existing)
		}
	}
	return SetNestedListField(doc, section, index, name, kept)
}

// AddSkills 把技能合并进分类，去重并丢弃空白项。
func AddSkills(doc resume.Document, category string, skills ...string) resume.Document {
	next := doc
	next.Skills = doc.Skills.Merge(category, skills...)
	return next
}

// RemoveSkill 从分类中删除一个技能（忽略大小写）。
func RemoveSkill(doc resume.Document, category, skill string) resume.Document {
	items, ok := doc.Skills[category]
	if !ok {
		return doc
	}
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if !strings.EqualFold(item, strings.TrimSpace(skill)) {
			kept = append(kept, item)
		}
	}
	next := doc
	next.Skills = doc.Skills.Clone()
	next.Skills[category] = kept
	return next
}

// SplitCommaList 按逗号切分并去掉两端空白，空段被丢弃。
func SplitCommaList(raw string) []string {
	return resume.CleanList(strings.Split(raw, ","))
}

// Len 返回列表板块的长度。
func Len(doc resume.Document, section string) (int, error) {
	ops, err := listFor(section)
	if err != nil {
		return 0, err
	}
	return ops.length(&doc), nil
}

// IsListSection 报告 section 是否为列表板块。
func IsListSection(section string) bool {
	_, ok := lists[section]
	return ok
}

// IsNestedListField 报告 section.name 是否为字符串列表字段。
func IsNestedListField(section, name string) bool {
	ops, ok := lists[section]
	if !ok {
		return false
	}
	k, ok := ops.kind(name)
	return ok && k == kindList
}

// IsFlagField 报告 section.name 是否为布尔字段。
func IsFlagField(section, name string) bool {
	ops, ok := lists[section]
	if !ok {
		return false
	}
	k, ok := ops.kind(name)
	return ok && k == kindFlag
}

func nestedList(doc resume.Document, section string, index int, name string) ([]string, error) {
	ops, err := listFor(section)
	if err != nil {
		return nil, err
	}
	if err := requireListField(ops, name); err != nil {
		return nil, err
	}
	value, err := ops.get(&doc, index, name)
	if err != nil {
		return nil, err
	}
	return value.([]string), nil
}

func requireListField(ops listOps, name string) error {
	k, ok := ops.kind(name)
	if !ok {
		return unknownField(name)
	}
	if k != kindList {
		return fmt.Errorf("%w: field %q is not a list", ErrSchemaMismatch, name)
	}
	return nil
}

func recordFor(section string) (recordOps, error) {
	if ops, ok := records[section]; ok {
		return ops, nil
	}
	if _, ok := lists[section]; ok {
		return nil, fmt.Errorf("%w: %q is a list section", ErrInvalidSection, section)
	}
	return nil, fmt.Errorf("%w: unknown section %q", ErrInvalidSection, section)
}

func listFor(section string) (listOps, error) {
	if ops, ok := lists[section]; ok {
		return ops, nil
	}
	if _, ok := records[section]; ok {
		return nil, fmt.Errorf("%w: %q is not a list section", ErrInvalidSection, section)
	}
	return nil, fmt.Errorf("%w: unknown section %q", ErrInvalidSection, section)
}
