// Package parser 处理模型输出中的常见 JSON 格式问题
package parser

import (
	"strings"
)

// RepairJSON 尝试修复模型给出的工具参数
// 1. 移除 Markdown 代码块标记 (```json ... ```)
// 2. 移除首尾空白字符
// 3. 删除对象/数组结尾多余的逗号
// "null" 视为空参数
func RepairJSON(input string) string {
	cleaned := strings.TrimSpace(input)

	// 移除 Markdown 代码块
	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) >= 2 {
			// 移除第一行 (```json 或 ```)
			lines = lines[1:]
			// 移除最后一行 (```)
			if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			cleaned = strings.Join(lines, "\n")
		}
	}
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "null" {
		return ""
	}
	return stripTrailingCommas(cleaned)
}

// stripTrailingCommas 删除 } 或 ] 之前的逗号，字符串内容不受影响
func stripTrailingCommas(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.ContainsRune(" \t\r\n", rune(s[j])) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
