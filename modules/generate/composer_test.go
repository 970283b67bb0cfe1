package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festiva-canvas-server/modules/common/model"
)

type stubCreative struct {
	response string
	err      error
	calls    int
}

func (s *stubCreative) Complete(ctx context.Context, system string, user string) (string, error) {
	s.calls++
	return s.response, s.err
}

func testEvent() *model.FestivalEvent {
	eventDate := "2026-11-08"
	region := "IN"
	keywords := "diyas, rangoli, lights"
	return &model.FestivalEvent{
		EventID:   "evt-1",
		EventName: "Diwali",
		EventDate: &eventDate,
		Region:    &region,
		Keywords:  &keywords,
	}
}

func TestComposeUsesCreativeDirection(t *testing.T) {
	creative := &stubCreative{
		response: `{"image_prompt": "rows of glowing diyas on a marble table", "headline_suggestion": "Happy Diwali", "palette": "gold, indigo", "mood": "warm"}`,
	}
	composer := NewPromptComposer(creative)

	pair := composer.Compose(context.Background(), testEvent(), "restaurant", "")

	assert.Contains(t, pair.CleanPrompt, "rows of glowing diyas")
	assert.Contains(t, pair.CleanPrompt, "NO text")
	assert.Contains(t, pair.TextPrompt, `"DIWALI"`)
	assert.Equal(t, "Diwali", pair.Headline)
	assert.Equal(t, 1, creative.calls)
}

func TestComposeRendersEventNameNotSuggestion(t *testing.T) {
	// LLM이 다른 헤드라인을 제안해도 렌더링되는 텍스트는 이벤트명이어야 한다
	creative := &stubCreative{
		response: `{"image_prompt": "festive night scene", "headline_suggestion": "Sparkle All Night"}`,
	}
	composer := NewPromptComposer(creative)

	pair := composer.Compose(context.Background(), testEvent(), "", "")

	assert.Contains(t, pair.TextPrompt, `"DIWALI"`)
	assert.NotContains(t, pair.TextPrompt, "SPARKLE ALL NIGHT")
	assert.Equal(t, "Diwali", pair.Headline)
}

func TestComposeTruncatesLongEventName(t *testing.T) {
	creative := &stubCreative{
		response: `{"image_prompt": "festive scene", "headline_suggestion": "Joyful Days"}`,
	}
	composer := NewPromptComposer(creative)

	event := testEvent()
	event.EventName = "Lunar New Year Festival Celebration"

	pair := composer.Compose(context.Background(), event, "", "")

	assert.Equal(t, "Lunar New Year", pair.Headline)
	assert.Contains(t, pair.TextPrompt, `"LUNAR NEW YEAR"`)
	assert.NotContains(t, pair.TextPrompt, "FESTIVAL CELEBRATION")
}

func TestComposeFreeformTruncatesLongHeadline(t *testing.T) {
	creative := &stubCreative{
		response: `{"image_prompt": "festive scene", "headline_suggestion": "Happy Festive Season Wishes Always"}`,
	}
	composer := NewPromptComposer(creative)

	pair := composer.ComposeFreeform(context.Background(), "autumn sale banner", "", "")

	assert.Equal(t, "Happy Festive Season", pair.Headline)
	assert.Contains(t, pair.TextPrompt, `"HAPPY FESTIVE SEASON"`)
	assert.NotContains(t, pair.TextPrompt, "WISHES ALWAYS")
}

func TestComposeFallsBackOnProviderError(t *testing.T) {
	creative := &stubCreative{err: errors.New("upstream down")}
	composer := NewPromptComposer(creative)

	pair := composer.Compose(context.Background(), testEvent(), "cafe", "minimal pastel")

	require.NotEmpty(t, pair.CleanPrompt)
	assert.Contains(t, pair.CleanPrompt, "Diwali")
	assert.Contains(t, pair.CleanPrompt, "latte art")
	assert.Contains(t, pair.CleanPrompt, "minimal pastel")
	assert.Equal(t, "Diwali", pair.Headline)
}

func TestComposeFallsBackOnMalformedJSON(t *testing.T) {
	creative := &stubCreative{response: "sure! here is a prompt for you"}
	composer := NewPromptComposer(creative)

	pair := composer.Compose(context.Background(), testEvent(), "", "")

	assert.Contains(t, pair.CleanPrompt, "Diwali")
	assert.Contains(t, pair.TextPrompt, `"DIWALI"`)
}

func TestComposeFallsBackOnMissingImagePrompt(t *testing.T) {
	creative := &stubCreative{response: `{"headline_suggestion": "Happy Diwali"}`}
	composer := NewPromptComposer(creative)

	pair := composer.Compose(context.Background(), testEvent(), "", "")

	// 폴백 경로는 정적 키워드 테이블을 사용한다
	assert.Contains(t, pair.CleanPrompt, "glowing diyas")
}

func TestComposeFallsBackOnMissingHeadlineSuggestion(t *testing.T) {
	// 필수 필드가 빠지면 LLM image_prompt도 버리고 쌍 전체가 폴백이어야 한다
	creative := &stubCreative{response: `{"image_prompt": "llm night scene", "headline_suggestion": ""}`}
	composer := NewPromptComposer(creative)

	pair := composer.Compose(context.Background(), testEvent(), "", "")

	assert.NotContains(t, pair.CleanPrompt, "llm night scene")
	assert.Contains(t, pair.CleanPrompt, "glowing diyas")
	assert.Equal(t, "Diwali", pair.Headline)
}

func TestComposeStripsMarkdownFences(t *testing.T) {
	creative := &stubCreative{
		response: "```json\n{\"image_prompt\": \"fenced prompt\", \"headline_suggestion\": \"Joy\"}\n```",
	}
	composer := NewPromptComposer(creative)

	pair := composer.Compose(context.Background(), testEvent(), "", "")

	assert.Contains(t, pair.CleanPrompt, "fenced prompt")
	assert.Equal(t, "Diwali", pair.Headline)
}

func TestComposeNilCreativeUsesFallback(t *testing.T) {
	composer := NewPromptComposer(nil)

	pair := composer.Compose(context.Background(), testEvent(), "", "")

	require.NotEmpty(t, pair.CleanPrompt)
	require.NotEmpty(t, pair.TextPrompt)
	assert.Equal(t, "Diwali", pair.Headline)
}

func TestTruncateHeadline(t *testing.T) {
	assert.Equal(t, "Happy Diwali", TruncateHeadline("  Happy   Diwali  "))
	assert.Equal(t, "One Two Three", TruncateHeadline("One Two Three Four Five"))
	assert.Equal(t, "", TruncateHeadline("   "))
}

func TestBuildTextPromptRepeatsLiteralHeadline(t *testing.T) {
	prompt := BuildTextPrompt("a scene", "Happy Holi")

	// literal 텍스트는 본문에 두 번 등장해야 한다
	assert.Equal(t, 2, strings.Count(prompt, `"HAPPY HOLI"`))
}
