package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"shopassist/internal/logger"

	"github.com/dslipak/pdf"
	"go.uber.org/zap"
)

// ErrUnsupportedType 不支持的文件类型
var ErrUnsupportedType = errors.New("unsupported file type, expected .pdf, .txt or .md")

// Parser 文档文本提取
type Parser interface {
	Parse(reader io.Reader) (string, error)
	SupportedExtensions() []string
}

// PDFParser 基于 dslipak/pdf 的纯文本提取
type PDFParser struct{}

func (PDFParser) Parse(reader io.Reader) (string, error) {
	// pdf.NewReader 需要 ReaderAt
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取 PDF 内容失败: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开 PDF 失败: %w", err)
	}

	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页失败不影响其他页
			logger.Warn("解析 PDF 页面失败", zap.Int("page", i), zap.Error(err))
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	content := strings.TrimSpace(buf.String())
	if content == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}

func (PDFParser) SupportedExtensions() []string { return []string{".pdf"} }

// TextParser 纯文本与 Markdown
type TextParser struct{}

func (TextParser) Parse(reader io.Reader) (string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

func (TextParser) SupportedExtensions() []string { return []string{".txt", ".md", ".markdown"} }

var parsers = []Parser{PDFParser{}, TextParser{}}

// ParserFor 按文件扩展名选择解析器
func ParserFor(filename string) (Parser, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, p := range parsers {
		for _, supported := range p.SupportedExtensions() {
			if supported == ext {
				return p, ext, nil
			}
		}
	}
	return nil, ext, ErrUnsupportedType
}
