// Package versions 管理简历的本地快照：创建、列出与恢复。
// 版本列表独立于 Document 保存，快照内的 Document 不再携带版本列表。
package versions

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"resumeBuilder/internal/resume"
)

// ErrVersionNotFound 指定 id 的快照不存在。
var ErrVersionNotFound = errors.New("version not found")

// Snapshot 深拷贝 doc 并追加到 list，返回新列表与新版本。name 为空时命名为 "Version N"。
func Snapshot(list []resume.Version, doc resume.Document, name string, now time.Time) ([]resume.Version, resume.Version) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Version %d", len(list)+1)
	}

	v := resume.Version{
		ID:        nextID(list, now),
		Name:      name,
		Timestamp: now.UTC(),
		Data:      doc.WithoutVersions(),
	}

	next := make([]resume.Version, len(list), len(list)+1)
	copy(next, list)
	return append(next, v), v
}

// Restore 返回快照中 Document 的副本；list 本身不变。
func Restore(list []resume.Version, id string) (resume.Document, error) {
	for _, v := range list {
		if v.ID == id {
			return v.Data.Clone(), nil
		}
	}
	return resume.Document{}, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
}

// List 按时间倒序返回，时间相同则后创建的在前。
func List(list []resume.Version) []resume.Version {
	out := make([]resume.Version, len(list))
	for i, v := range list {
		out[len(list)-1-i] = v
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// nextID 以毫秒时间戳为 id，冲突时递增直到唯一。
func nextID(list []resume.Version, now time.Time) string {
	taken := make(map[string]bool, len(list))
	for _, v := range list {
		taken[v.ID] = true
	}
	ms := now.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if !taken[id] {
			return id
		}
		ms++
	}
}
