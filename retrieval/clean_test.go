package retrieval

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	in := "高血压\t\t饮食   建议\n\n\n\n第二段ﬁle"
	out := CleanText(in)

	if strings.Contains(out, "\t") || strings.Contains(out, "  ") {
		t.Fatalf("whitespace not collapsed: %q", out)
	}
	if strings.Contains(out, "\n\n\n") {
		t.Fatalf("newlines not collapsed: %q", out)
	}
	if !strings.Contains(out, "file") {
		t.Fatalf("ligature not fixed: %q", out)
	}

	if got := CleanText(""); got != "" {
		t.Fatalf("CleanText(\"\") = %q", got)
	}
}

func TestHTMLToText(t *testing.T) {
	html := `<html><body>
	<h1>高血压饮食指南</h1>
	<p>低盐饮食有助于控制血压。</p>
	<ul><li>每日食盐不超过5克</li><li>多吃蔬菜水果</li></ul>
	<table><tr><th>项目</th><th>建议</th></tr><tr><td>盐</td><td>5g</td></tr></table>
	<script>alert("ignored")</script>
	</body></html>`

	out, err := HTMLToText(html)
	if err != nil {
		t.Fatalf("HTMLToText: %v", err)
	}
	for _, want := range []string{
		"# 高血压饮食指南",
		"低盐饮食有助于控制血压。",
		"- 每日食盐不超过5克",
		"| 项目 | 建议 |",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "alert") {
		t.Fatalf("script content leaked: %q", out)
	}
}

func TestRemoveWebNoise(t *testing.T) {
	in := "低盐饮食建议\n版权所有 © 某健康网\n多运动\n你可能还喜欢这些文章"
	out := RemoveWebNoise(in)

	if strings.Contains(out, "版权") || strings.Contains(out, "你可能还喜欢") {
		t.Fatalf("noise lines kept: %q", out)
	}
	if !strings.Contains(out, "低盐饮食建议") || !strings.Contains(out, "多运动") {
		t.Fatalf("content lines dropped: %q", out)
	}
}
