package service

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

type RosterEntry struct {
	Index int
	Name  string
}

// Intent 自然语言提名的解析结果，SeatIndices 为从 0 开始的座位号
type Intent struct {
	IsProposal  bool
	SeatIndices []int
}

// IntentParser 把队长的自然语言消息解析为结构化提名，结果仍需引擎重新校验
type IntentParser interface {
	Parse(ctx context.Context, text string, roster []RosterEntry) (Intent, error)
}

var (
	seatNumberPattern = regexp.MustCompile(`\d+`)

	proposalKeywords = []string{"提名", "派", "组队", "出任务", "上车", "propose", "team"}
)

// SeatNumberParser 内置解析器：消息含提名关键词时，按出现顺序提取从 1 开始的座位号与玩家昵称
type SeatNumberParser struct{}

func (SeatNumberParser) Parse(_ context.Context, text string, roster []RosterEntry) (Intent, error) {
	lower := strings.ToLower(text)

	isProposal := false
	for _, kw := range proposalKeywords {
		if strings.Contains(lower, kw) {
			isProposal = true
			break
		}
	}
	if !isProposal {
		return Intent{}, nil
	}

	type hit struct {
		pos  int
		seat int
	}
	hits := make([]hit, 0)

	// 昵称中的数字不作为座位号
	type span struct{ start, end int }
	names := make([]span, 0, len(roster))
	for _, r := range roster {
		if r.Name == "" {
			continue
		}
		if pos := strings.Index(text, r.Name); pos >= 0 {
			hits = append(hits, hit{pos: pos, seat: r.Index})
			names = append(names, span{start: pos, end: pos + len(r.Name)})
		}
	}

	for _, loc := range seatNumberPattern.FindAllStringIndex(text, -1) {
		inName := slices.ContainsFunc(names, func(sp span) bool {
			return loc[0] >= sp.start && loc[0] < sp.end
		})
		if inName {
			continue
		}

		n, err := strconv.Atoi(text[loc[0]:loc[1]])
		if err != nil || n < 1 {
			continue
		}
		hits = append(hits, hit{pos: loc[0], seat: n - 1})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return a.pos - b.pos
	})

	seen := make(map[int]bool, len(hits))
	seats := make([]int, 0, len(hits))
	for _, h := range hits {
		if seen[h.seat] {
			continue
		}
		seen[h.seat] = true
		seats = append(seats, h.seat)
	}

	return Intent{IsProposal: true, SeatIndices: seats}, nil
}
