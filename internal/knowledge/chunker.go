package knowledge

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrEmptyContent 文档没有可用文本
var ErrEmptyContent = errors.New("document has no text content")

// Chunker 文档分块器，按句子边界聚合，长度以字符计
type Chunker struct {
	ChunkSize    int // 分块大小(字符数)
	ChunkOverlap int // 重叠大小(字符数)
}

// NewChunker 创建分块器，默认 1000/200
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// ChunkResult 分块结果
type ChunkResult struct {
	Content     string
	ChunkIndex  int
	TokenCount  int
	ContentHash string
}

// Split 对文档分块；每块不超过 ChunkSize，相邻块共享末尾约 ChunkOverlap 字符
func (c *Chunker) Split(content string) ([]ChunkResult, error) {
	content = normalizeText(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	sentences := make([]string, 0)
	for _, s := range splitIntoSentences(content) {
		sentences = append(sentences, splitLong(s, c.ChunkSize)...)
	}

	chunks := make([]ChunkResult, 0)
	current := ""
	for _, sentence := range sentences {
		if current == "" {
			current = sentence
			continue
		}
		if runeLen(current)+1+runeLen(sentence) <= c.ChunkSize {
			current += " " + sentence
			continue
		}

		chunks = append(chunks, newChunk(current, len(chunks)))

		// 新块以上一块的末尾开头
		overlap := c.overlapText(current, c.ChunkSize-runeLen(sentence)-1)
		if overlap != "" {
			current = overlap + " " + sentence
		} else {
			current = sentence
		}
	}
	if current != "" {
		chunks = append(chunks, newChunk(current, len(chunks)))
	}
	return chunks, nil
}

func newChunk(content string, index int) ChunkResult {
	content = strings.TrimSpace(content)
	return ChunkResult{
		Content:     content,
		ChunkIndex:  index,
		TokenCount:  estimateTokenCount(content),
		ContentHash: hashContent(content),
	}
}

// overlapText 取文本末尾不超过 limit 个字符，从完整单词开始
func (c *Chunker) overlapText(text string, limit int) string {
	n := c.ChunkOverlap
	if limit < n {
		n = limit
	}
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return ""
	}

	start := len(runes) - n
	overlap := string(runes[start:])
	if runes[start-1] != ' ' {
		idx := strings.Index(overlap, " ")
		if idx < 0 {
			return ""
		}
		overlap = overlap[idx+1:]
	}
	return strings.TrimSpace(overlap)
}

// normalizeText 合并连续空白
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitIntoSentences 以句号、问号、感叹号切分，忽略小数点
func splitIntoSentences(text string) []string {
	sentences := make([]string, 0)
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if r == '.' && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
				continue
			}
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitLong 超长句子按空白硬切
func splitLong(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}

	parts := make([]string, 0, len(runes)/size+1)
	for len(runes) > size {
		cut := size
		for i := size; i > size/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		if part := strings.TrimSpace(string(runes[:cut])); part != "" {
			parts = append(parts, part)
		}
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// estimateTokenCount 英文按单词数，中文按字符数/1.5
func estimateTokenCount(text string) int {
	chinese := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FA5 {
			chinese++
		}
	}
	return len(strings.Fields(text)) + int(float64(chinese)/1.5)
}

func hashContent(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}
