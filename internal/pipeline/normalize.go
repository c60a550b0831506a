package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"problem-search-go/internal/model"
)

// ErrUnknownOmitField 表示 index_omit 中配置了索引文档里不存在的可选字段。
var ErrUnknownOmitField = errors.New("unknown index omit field")

var (
	// bracketReplacer 把方括号、圆括号及其全角形式替换为空格，避免干扰分词。
	bracketReplacer = strings.NewReplacer(
		"[", " ", "]", " ",
		"【", " ", "】", " ",
		"(", " ", ")", " ",
		"（", " ", "）", " ",
	)
	// alnumRe 匹配至少两个字母紧跟数字的编号，例如 AB123。
	alnumRe = regexp.MustCompile(`([a-zA-Z]{2,})(\d+)`)
)

// optionalIndexFields 是可以通过配置从索引中额外排除的字段（JSON 名）。
// 默认排除的 _id、docType、data、additional_file、config、stats、assign
// 在 ProblemIndexDoc 中根本没有对应字段。
var optionalIndexFields = map[string]func(*model.ProblemIndexDoc){
	"owner":      func(d *model.ProblemIndexDoc) { d.Owner = nil },
	"hidden":     func(d *model.ProblemIndexDoc) { d.Hidden = nil },
	"nSubmit":    func(d *model.ProblemIndexDoc) { d.NSubmit = nil },
	"nAccept":    func(d *model.ProblemIndexDoc) { d.NAccept = nil },
	"difficulty": func(d *model.ProblemIndexDoc) { d.Difficulty = nil },
	"tag":        func(d *model.ProblemIndexDoc) { d.Tag = nil },
	"content":    func(d *model.ProblemIndexDoc) { d.Content = nil },
}

// Normalizer 把题目转换为适合建索引的投影。它是无状态的，可以并发使用。
type Normalizer struct {
	omit []func(*model.ProblemIndexDoc)
}

var defaultNormalizer = &Normalizer{}

// NewNormalizer 创建一个 Normalizer，extraOmit 为在默认排除集合之外额外排除的字段。
func NewNormalizer(extraOmit []string) (*Normalizer, error) {
	n := &Normalizer{}
	for _, name := range extraOmit {
		drop, ok := optionalIndexFields[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOmitField, name)
		}
		n.omit = append(n.omit, drop)
	}
	return n, nil
}

// Normalize 使用默认排除集合转换题目。
func Normalize(doc *model.Problem) model.ProblemIndexDoc {
	return defaultNormalizer.Normalize(doc)
}

// Normalize 转换题目，不修改入参。缺失的 title、content、pid 保持缺失。
func (n *Normalizer) Normalize(doc *model.Problem) model.ProblemIndexDoc {
	owner, hidden, nSubmit, nAccept := doc.Owner, doc.Hidden, doc.NSubmit, doc.NAccept
	out := model.ProblemIndexDoc{
		DomainID: doc.DomainID,
		DocID:    doc.DocID,
		Owner:    &owner,
		Hidden:   &hidden,
		NSubmit:  &nSubmit,
		NAccept:  &nAccept,
	}
	if len(doc.Tag) > 0 {
		out.Tag = append([]string(nil), doc.Tag...)
	}
	if doc.Difficulty != 0 {
		difficulty := doc.Difficulty
		out.Difficulty = &difficulty
	}

	if doc.Content != nil {
		content := stripBrackets(*doc.Content)
		out.Content = &content
	}
	if doc.Title != nil {
		title := splitFirstCode(stripBrackets(*doc.Title))
		out.Title = &title
	}
	if doc.PID != nil {
		pid := splitFirstCode(*doc.PID)
		out.PID = &pid
	}

	for _, drop := range n.omit {
		drop(&out)
	}
	return out
}

func stripBrackets(s string) string {
	return bracketReplacer.Replace(s)
}

// splitFirstCode 只改写第一个 "字母+数字" 编号：AB123 -> "AB123 AB 123"，
// 让完整编号和它的两部分都可以被单独匹配。
func splitFirstCode(s string) string {
	loc := alnumRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	letters, digits := s[loc[2]:loc[3]], s[loc[4]:loc[5]]
	return s[:loc[0]] + letters + digits + " " + letters + " " + digits + s[loc[1]:]
}
