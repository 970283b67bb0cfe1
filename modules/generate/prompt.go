package generate

import (
	"fmt"
	"strings"
)

// 헤드라인 최대 단어 수. 짧은 캡션을 넘어가면 텍스트 렌더링 모델이
// 불안정해지므로 하드 제한.
const maxHeadlineWords = 3

// industryKeywords - 업종별 분위기 키워드 (결정적 폴백용, 네트워크 호출 없음)
var industryKeywords = map[string]string{
	"restaurant": "warm candlelight, shared table full of seasonal dishes, rich food textures, inviting atmosphere",
	"cafe":       "latte art, cozy window seat, soft morning light, pastry display, steam rising from cups",
	"retail":     "styled product arrangement, gift boxes with ribbon, festive storefront display, bold price-tag-free styling",
	"beauty":     "elegant cosmetics flat lay, soft pastel gradients, silk textures, glowing skin tones",
	"fitness":    "energetic movement, morning light through gym windows, determination, fresh start mood",
	"tech":       "clean minimal devices, subtle neon accents, modern workspace, crisp geometric composition",
	"florist":    "overflowing seasonal bouquet, dew on petals, kraft paper wrap, garden workshop backdrop",
}

// eventKeywords - 주요 축제별 비주얼 키워드 (결정적 폴백용)
var eventKeywords = map[string]string{
	"diwali":         "rows of glowing diyas, rangoli patterns, marigold garlands, deep indigo night sky, gold accents",
	"christmas":      "evergreen branches, warm string lights, red and gold ornaments, falling snow, wrapped gifts",
	"lunar new year": "red lanterns, gold ingots, plum blossoms, festive red envelopes, auspicious patterns",
	"chuseok":        "full harvest moon, songpyeon rice cakes, autumn leaves, hanbok fabric textures, family table",
	"eid":            "crescent moon and star, ornate lanterns, geometric arabesque patterns, dates and sweets, emerald and gold",
	"holi":           "clouds of vivid colored powder, joyful splashes of pink and yellow, bright daylight celebration",
	"thanksgiving":   "harvest table, pumpkins and gourds, golden autumn light, rustic wooden textures, abundance",
	"new year":       "midnight fireworks, champagne gold sparkle, confetti, countdown energy, fresh beginnings",
	"valentine":      "soft rose petals, handwritten notes, blush and crimson palette, intimate warm lighting",
	"halloween":      "carved pumpkins, moody twilight, playful spooky silhouettes, orange and violet palette",
}

const defaultEventKeywords = "festive decorations, celebratory lighting, joyful seasonal atmosphere, rich warm colors"
const defaultIndustryKeywords = "professional brand photography, premium styling, commercial quality composition"

// TruncateHeadline - 헤드라인을 최대 3단어로 절단
func TruncateHeadline(headline string) string {
	words := strings.Fields(strings.TrimSpace(headline))
	if len(words) > maxHeadlineWords {
		words = words[:maxHeadlineWords]
	}
	return strings.Join(words, " ")
}

// BuildCleanPrompt - 텍스트 없는 variant용 프롬프트
func BuildCleanPrompt(basePrompt string) string {
	return basePrompt + "\n\n" +
		"[OUTPUT CONSTRAINTS]\n" +
		"- Absolutely NO text, NO letters, NO numbers anywhere in the image\n" +
		"- NO watermark\n" +
		"- NO borders or frames\n" +
		"- Single cohesive composition filling the entire frame"
}

// BuildTextPrompt - 헤드라인 렌더링 variant용 프롬프트
// 텍스트 렌더링 경로가 완전히 신뢰할 수 없어서 literal 텍스트를 한 번 더 반복
func BuildTextPrompt(basePrompt string, headline string) string {
	upper := strings.ToUpper(headline)

	return basePrompt + "\n\n" +
		"[HEADLINE TEXT - MANDATORY]\n" +
		fmt.Sprintf("Render the exact text \"%s\" as the dominant headline of the image.\n", upper) +
		"- Position: upper third of the composition, centered\n" +
		"- Color: high-contrast against the background, matching the brand palette\n" +
		"- Font weight: extra bold, clean modern typeface\n" +
		"- The headline must be large, perfectly legible, and spelled exactly as given\n" +
		fmt.Sprintf("The literal text to render is: \"%s\"\n\n", upper) +
		"[OUTPUT CONSTRAINTS]\n" +
		"- NO other text besides the headline\n" +
		"- NO watermark, NO borders\n" +
		"- Single cohesive composition filling the entire frame"
}

// FallbackBasePrompt - 업스트림 추론 실패 시 쓰는 결정적 템플릿 프롬프트
// 정적 키워드 테이블만 사용하므로 절대 실패하지 않는다.
func FallbackBasePrompt(eventName string, industry string, styleContext string) string {
	eventKw := defaultEventKeywords
	if kw, ok := eventKeywords[normalizeKey(eventName)]; ok {
		eventKw = kw
	}

	industryKw := defaultIndustryKeywords
	if kw, ok := industryKeywords[normalizeKey(industry)]; ok {
		industryKw = kw
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Professional marketing photograph celebrating %s", displayName(eventName))
	if industry != "" {
		fmt.Fprintf(&b, " for a %s business", strings.ToLower(strings.TrimSpace(industry)))
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Scene elements: %s.\n", eventKw)
	fmt.Fprintf(&b, "Brand direction: %s.\n", industryKw)
	if styleContext != "" {
		fmt.Fprintf(&b, "Brand style: %s.\n", strings.TrimSpace(styleContext))
	}
	b.WriteString("Editorial quality, sharp focus, rich color grading, suitable for social media campaigns.")

	return b.String()
}

// normalizeKey - 키워드 테이블 조회용 정규화
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// "Valentine's Day", "New Year's Eve" 같은 변형 흡수
	for key := range eventKeywords {
		if strings.Contains(s, key) {
			return key
		}
	}
	return s
}

// displayName - 빈 이벤트명 방어
func displayName(eventName string) string {
	eventName = strings.TrimSpace(eventName)
	if eventName == "" {
		return "the season's festival"
	}
	return eventName
}
