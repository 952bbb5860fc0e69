package render

import (
	"bytes"
	stdhtml "html"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/support-console/backend/pkg/logger"
	"go.uber.org/zap"
)

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		)
	})
	return markdownInstance
}

// HTML renders AI answer text. Raw HTML in the input is not passed
// through. On a render failure the text is returned escaped as-is.
func HTML(text string) string {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(text), &buf); err != nil {
		logger.Warn("Markdown render failed", zap.Error(err))
		return "<p>" + stdhtml.EscapeString(text) + "</p>"
	}
	return buf.String()
}
