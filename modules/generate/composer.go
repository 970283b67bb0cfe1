package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"festiva-canvas-server/modules/common/model"
)

// composerSystemInstruction - 크리에이티브 디렉션 생성용 시스템 프롬프트
const composerSystemInstruction = `You are an art director for festival marketing imagery.
Given a festival and a business context, respond with a single JSON object and nothing else:
{
  "image_prompt": "a detailed English prompt for an image generation model describing one marketing photograph",
  "headline_suggestion": "a short celebratory caption of at most 3 words",
  "palette": "3-5 color keywords",
  "mood": "one or two mood keywords"
}
The image_prompt must describe composition, lighting, scene elements and brand fit.
Do not include any markdown, commentary, or fields other than the JSON object.`

// creativeDirection - LLM이 돌려주는 JSON 계약
type creativeDirection struct {
	ImagePrompt        string `json:"image_prompt"`
	HeadlineSuggestion string `json:"headline_suggestion"`
	Palette            string `json:"palette"`
	Mood               string `json:"mood"`
}

// PromptComposer - 크리에이티브 디렉션 합성기
// 업스트림 LLM 실패/비정상 응답 시 결정적 폴백으로 무조건 degrade.
type PromptComposer struct {
	creative CreativeProvider
}

// NewPromptComposer - Composer 생성 (creative nil 허용, 폴백 전용 모드)
func NewPromptComposer(creative CreativeProvider) *PromptComposer {
	return &PromptComposer{creative: creative}
}

// Compose - 이벤트 기반 프롬프트 쌍 생성
// 렌더링되는 헤드라인은 항상 이벤트명 그대로다 (대문자, 최대 3단어).
// LLM의 headline_suggestion은 응답 검증에만 쓰이고 렌더링에는 쓰지 않는다.
func (c *PromptComposer) Compose(ctx context.Context, event *model.FestivalEvent, industry string, styleContext string) PromptPair {
	headline := fallbackHeadline(event.EventName)

	userMessage := buildCreativeBrief(event, industry, styleContext)

	direction, err := c.requestDirection(ctx, userMessage)
	if err != nil {
		log.Printf("⚠️ 크리에이티브 디렉션 실패, 폴백 사용: %v", err)
		return c.fallbackPair(event.EventName, industry, styleContext)
	}

	return PromptPair{
		CleanPrompt: BuildCleanPrompt(direction.ImagePrompt),
		TextPrompt:  BuildTextPrompt(direction.ImagePrompt, headline),
		Headline:    headline,
	}
}

// ComposeFreeform - 자유 입력 프롬프트 기반 생성 (이벤트 조회 없음)
func (c *PromptComposer) ComposeFreeform(ctx context.Context, freeform string, industry string, styleContext string) PromptPair {
	userMessage := fmt.Sprintf(
		"The business wants marketing imagery based on this request: %q\nIndustry: %s\nBrand style: %s",
		freeform, orNone(industry), orNone(styleContext),
	)

	direction, err := c.requestDirection(ctx, userMessage)
	if err != nil {
		log.Printf("⚠️ 자유 프롬프트 디렉션 실패, 폴백 사용: %v", err)
		base := FallbackBasePrompt(freeform, industry, styleContext)
		headline := fallbackHeadline(freeform)
		return PromptPair{
			CleanPrompt: BuildCleanPrompt(base),
			TextPrompt:  BuildTextPrompt(base, headline),
			Headline:    headline,
		}
	}

	// 자유 입력 경로에는 이벤트명이 없으므로 제안된 헤드라인 사용
	headline := TruncateHeadline(direction.HeadlineSuggestion)

	return PromptPair{
		CleanPrompt: BuildCleanPrompt(direction.ImagePrompt),
		TextPrompt:  BuildTextPrompt(direction.ImagePrompt, headline),
		Headline:    headline,
	}
}

// requestDirection - LLM 호출 + JSON 파싱 + 필수 필드 검증
func (c *PromptComposer) requestDirection(ctx context.Context, userMessage string) (*creativeDirection, error) {
	if c.creative == nil {
		return nil, ErrProviderUnavailable
	}

	raw, err := c.creative.Complete(ctx, composerSystemInstruction, userMessage)
	if err != nil {
		return nil, fmt.Errorf("creative provider: %w", err)
	}

	cleaned := stripMarkdownFences(raw)

	var direction creativeDirection
	if err := json.Unmarshal([]byte(cleaned), &direction); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCreative, err)
	}

	// 필수 필드가 하나라도 빠지면 응답 전체를 버리고 결정적 폴백으로
	if strings.TrimSpace(direction.ImagePrompt) == "" {
		return nil, fmt.Errorf("%w: missing image_prompt", ErrMalformedCreative)
	}
	if strings.TrimSpace(direction.HeadlineSuggestion) == "" {
		return nil, fmt.Errorf("%w: missing headline_suggestion", ErrMalformedCreative)
	}

	return &direction, nil
}

// fallbackPair - 결정적 폴백 프롬프트 쌍
func (c *PromptComposer) fallbackPair(eventName string, industry string, styleContext string) PromptPair {
	base := FallbackBasePrompt(eventName, industry, styleContext)
	headline := fallbackHeadline(eventName)
	return PromptPair{
		CleanPrompt: BuildCleanPrompt(base),
		TextPrompt:  BuildTextPrompt(base, headline),
		Headline:    headline,
	}
}

// fallbackHeadline - 이벤트명 기반 결정적 헤드라인
func fallbackHeadline(eventName string) string {
	headline := TruncateHeadline(eventName)
	if headline == "" {
		return "Happy Holidays"
	}
	return headline
}

// buildCreativeBrief - 이벤트 메타데이터를 LLM 브리프로 변환
func buildCreativeBrief(event *model.FestivalEvent, industry string, styleContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Festival: %s\n", event.EventName)
	if event.EventDate != nil && *event.EventDate != "" {
		fmt.Fprintf(&b, "Date: %s\n", *event.EventDate)
	}
	if event.Region != nil && *event.Region != "" {
		fmt.Fprintf(&b, "Region: %s\n", *event.Region)
	}
	if event.Keywords != nil && *event.Keywords != "" {
		fmt.Fprintf(&b, "Festival keywords: %s\n", *event.Keywords)
	}
	fmt.Fprintf(&b, "Industry: %s\n", orNone(industry))
	fmt.Fprintf(&b, "Brand style: %s\n", orNone(styleContext))
	return b.String()
}

// stripMarkdownFences - ```json ... ``` 래핑 제거
func stripMarkdownFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not specified)"
	}
	return s
}
