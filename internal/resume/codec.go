package resume

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Decode 解析并规范化一份简历 JSON。
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode resume: %w", err)
	}
	return doc, nil
}

// MarshalJSON 保证列表字段输出为 [] 而不是 null。
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return json.Marshal(plain(d.Normalize()))
}

// UnmarshalJSON 解码后立即规范化。
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Document(raw).Normalize()
	return nil
}

// UnmarshalJSON 同时接受扁平数组与分类对象两种形态。
func (s *Skills) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var flat []string
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return fmt.Errorf("skills list: %w", err)
		}
		*s = SkillsFromList(flat)
		return nil
	}

	var grouped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &grouped); err != nil {
		return fmt.Errorf("skills: %w", err)
	}
	out := make(Skills, len(grouped))
	for category, raw := range grouped {
		items, err := decodeSkillEntries(raw)
		if err != nil {
			return fmt.Errorf("skills category %q: %w", category, err)
		}
		out[category] = items
	}
	*s = out.Normalize()
	return nil
}

// 分类值可能是数组，也可能是逗号分隔的字符串。
func decodeSkillEntries(raw json.RawMessage) ([]string, error) {
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return CleanList(items), nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, err
	}
	return CleanList(strings.Split(joined, ",")), nil
}

// UnmarshalJSON 兼容旧字段 grade。
func (e *Education) UnmarshalJSON(data []byte) error {
	type plain Education
	var aux struct {
		plain
		Grade string `json:"grade"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Education(aux.plain)
	if e.GPA == "" {
		e.GPA = aux.Grade
	}
	return nil
}

// UnmarshalJSON 兼容旧字段 year。
func (c *Certification) UnmarshalJSON(data []byte) error {
	type plain Certification
	var aux struct {
		plain
		Year string `json:"year"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Certification(aux.plain)
	if c.Date == "" {
		c.Date = aux.Year
	}
	return nil
}

// UnmarshalJSON 兼容 {font, color, layout} 形态。
func (t *Theme) UnmarshalJSON(data []byte) error {
	type plain Theme
	var aux struct {
		plain
		Font  string `json:"font"`
		Color string `json:"color"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Theme(aux.plain)
	if t.FontFamily == "" {
		t.FontFamily = aux.Font
	}
	if t.ColorScheme == "" {
		t.ColorScheme = aux.Color
	}
	return nil
}
