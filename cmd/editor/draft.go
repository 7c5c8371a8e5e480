package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"resumeBuilder/internal/resume"
)

// draft 是本地工作副本，保存在 RESUME_DRAFT_PATH。
type draft struct {
	path string
	doc  resume.Document
}

func openDraft(path string) (*draft, error) {
	d := &draft{path: path, doc: resume.NewDocument()}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	doc, err := resume.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("draft %s: %w", path, err)
	}
	d.doc = doc
	return d, nil
}

func (d *draft) save() error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o700); err != nil {
		return fmt.Errorf("create draft dir: %w", err)
	}
	data, err := json.MarshalIndent(d.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := os.WriteFile(d.path, data, 0o600); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

// draftVersions 把版本列表存放在草稿自身的 versions 字段，未配置 Redis 时使用。
type draftVersions struct {
	d *draft
}

func (s draftVersions) Load(context.Context, string) ([]resume.Version, error) {
	return s.d.doc.Versions, nil
}

func (s draftVersions) Save(_ context.Context, _ string, list []resume.Version) error {
	s.d.doc.Versions = list
	return s.d.save()
}
