package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"resumeBuilder/internal/editor"
	"resumeBuilder/internal/resume"
)

var errUsage = errors.New("wrong number of arguments, see editor help")

func applySet(doc resume.Document, args []string) (resume.Document, error) {
	switch len(args) {
	case 3:
		section, name, raw := args[0], args[1], args[2]
		if section == resume.SectionSkills {
			return editor.SetScalarField(doc, section, name, editor.SplitCommaList(raw))
		}
		return editor.SetScalarField(doc, section, name, raw)
	case 4:
		section, name, raw := args[0], args[2], args[3]
		index, err := parseIndex(args[1])
		if err != nil {
			return doc, err
		}
		if editor.IsNestedListField(section, name) {
			return editor.SetNestedListFromText(doc, section, index, name, raw)
		}
		value, err := fieldValue(section, name, raw)
		if err != nil {
			return doc, err
		}
		return editor.SetListItemField(doc, section, index, name, value)
	default:
		return doc, errUsage
	}
}

func applyAdd(doc resume.Document, args []string) (resume.Document, error) {
	if len(args) == 0 {
		return doc, errUsage
	}
	section := args[0]
	if section == resume.SectionSkills {
		if len(args) != 3 {
			return doc, errUsage
		}
		return editor.AddSkills(doc, args[1], editor.SplitCommaList(args[2])...), nil
	}

	item := make(map[string]any, len(args)-1)
	for _, pair := range args[1:] {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return doc, fmt.Errorf("expected field=value, got %q", pair)
		}
		value, err := fieldValue(section, name, raw)
		if err != nil {
			return doc, err
		}
		item[name] = value
	}
	return editor.AppendListItem(doc, section, item)
}

func applyRemove(doc resume.Document, args []string) (resume.Document, error) {
	if len(args) == 3 && args[0] == resume.SectionSkills {
		return editor.RemoveSkill(doc, args[1], args[2]), nil
	}
	if len(args) != 2 {
		return doc, errUsage
	}
	index, err := parseIndex(args[1])
	if err != nil {
		return doc, err
	}
	return editor.RemoveListItem(doc, args[0], index)
}

func applyTag(doc resume.Document, args []string) (resume.Document, error) {
	if len(args) != 5 {
		return doc, errUsage
	}
	index, err := parseIndex(args[2])
	if err != nil {
		return doc, err
	}
	switch args[0] {
	case "add":
		return editor.AppendTag(doc, args[1], index, args[3], args[4])
	case "remove":
		return editor.RemoveTag(doc, args[1], index, args[3], args[4])
	default:
		return doc, fmt.Errorf("tag: unknown action %q", args[0])
	}
}

// fieldValue 按字段类型转换命令行输入。
func fieldValue(section, name, raw string) (any, error) {
	switch {
	case editor.IsFlagField(section, name):
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", section, name, editor.ErrSchemaMismatch)
		}
		return b, nil
	case editor.IsNestedListField(section, name):
		return editor.SplitCommaList(raw), nil
	default:
		return raw, nil
	}
}
