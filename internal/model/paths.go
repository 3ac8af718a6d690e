package model

import (
	"fmt"
	"regexp"
)

// DetailPathPattern 详情页相对路径的通用形状：program/<年份标记>/<slug>
var DetailPathPattern = regexp.MustCompile(`^program/[^/]+/[^/]+$`)

// DetailPathPatternFor 返回限定年份标记的详情页路径正则，例如 program/25/<slug>
func DetailPathPatternFor(yearToken string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^program/%s/[^/]+$`, regexp.QuoteMeta(yearToken)))
}
