package parser

import "testing"

func TestRepairJSON(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"原样":      {`{"product_id": 5}`, `{"product_id": 5}`},
		"代码块":     {"```json\n{\"category\": 2}\n```", `{"category": 2}`},
		"无语言代码块":  {"```\n{}\n```", `{}`},
		"空白":      {"  \n", ""},
		"null":    {"null", ""},
		"结尾逗号":    {`{"category": 2, "subcategory": 5,}`, `{"category": 2, "subcategory": 5}`},
		"数组结尾逗号":  {`{"ids": [1, 2, ]}`, `{"ids": [1, 2 ]}`},
		"字符串内逗号":  {`{"query": "sizes ,}"}`, `{"query": "sizes ,}"}`},
		"转义引号":    {`{"query": "a \", }", }`, `{"query": "a \", }" }`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := RepairJSON(tc.in); got != tc.want {
				t.Fatalf("RepairJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
