// Package usecase contains the interview business logic services.
package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ratingRe   = regexp.MustCompile(`(?i)Rating:\s*(\d+)\s*/\s*10`)
	fractionRe = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
)

// Keyword tiers used when the evaluation text carries no explicit rating.
var (
	excellentKeywords = []string{
		"excellent", "outstanding", "strong", "comprehensive", "impressive",
		"detailed", "insightful", "thoughtful", "well-articulated", "thorough",
	}
	goodKeywords = []string{
		"good", "solid", "clear", "appropriate", "demonstrates", "correct",
		"shows understanding", "adequate",
	}
	adequateKeywords = []string{
		"partially", "somewhat", "could improve", "missing details", "brief",
		"lacks depth", "incomplete",
	}
	poorKeywords = []string{
		"incorrect", "vague", "unclear", "off-topic", "failed", "poor",
		"confused", "contradicts",
	}
)

// ExtractScore converts a free-text LLM evaluation into a 0-100 score.
// It never fails: explicit "Rating: n/10" wins, then any n/10 or n/100
// fraction, then keyword heuristics, and an empty input scores 50.
func ExtractScore(evaluationText string) int {
	if strings.TrimSpace(evaluationText) == "" {
		return 50
	}

	if m := ratingRe.FindStringSubmatch(evaluationText); m != nil {
		rating, _ := strconv.Atoi(m[1])
		return clamp(rating*10, 0, 100)
	}

	if m := fractionRe.FindStringSubmatch(evaluationText); m != nil {
		score, _ := strconv.Atoi(m[1])
		max, _ := strconv.Atoi(m[2])
		switch max {
		case 10:
			return clamp(score*10, 0, 100)
		case 100:
			return clamp(score, 0, 100)
		}
	}

	return heuristicScore(evaluationText)
}

// heuristicScore derives a score from sentiment keyword counts. The dominant
// tier sets the base; poor-tier hits subtract 15 each, floored at 20.
func heuristicScore(text string) int {
	lower := strings.ToLower(text)

	excellent := countHits(lower, excellentKeywords)
	good := countHits(lower, goodKeywords)
	adequate := countHits(lower, adequateKeywords)
	poor := countHits(lower, poorKeywords)

	var base int
	switch {
	case excellent >= 2:
		base = 85 + excellent*2
	case excellent == 1:
		base = 80
	case good >= 2:
		base = 70 + good*2
	case good == 1:
		base = 65
	case adequate >= 2:
		base = 50 + adequate*2
	default:
		base = 55
	}

	if poor > 0 {
		base -= poor * 15
		if base < 20 {
			base = 20
		}
	}
	return clamp(base, 0, 100)
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
