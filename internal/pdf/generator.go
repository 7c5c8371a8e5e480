package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 纸张尺寸（英寸），页面未声明 @page 时使用。
const (
	a4WidthInch  = 8.27
	a4HeightInch = 11.69
)

// Renderer 把完整 HTML 文档渲染成 PDF。
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// ChromiumRenderer 每次渲染启动一个无头 Chromium。
type ChromiumRenderer struct {
	Timeout time.Duration
	// Bin 为空时自动查找本机 Chromium，找不到则由 launcher 下载。
	Bin string
}

// NewChromiumRenderer 构造渲染器，timeout <= 0 时使用 30 秒。
func NewChromiumRenderer(timeout time.Duration) *ChromiumRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromiumRenderer{Timeout: timeout}
}

// Render 使用 go-rod 在无头浏览器中渲染 HTML 并返回 PDF 字节。
func (r *ChromiumRenderer) Render(ctx context.Context, htmlContent string) ([]byte, error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if r.Bin != "" {
		launch = launch.Bin(r.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(r.Timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(r.Timeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(a4WidthInch),
		PaperHeight:       float64Ptr(a4HeightInch),
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}

	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}
