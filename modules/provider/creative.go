package provider

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"festiva-canvas-server/modules/common/config"
)

// GeminiCreative - 크리에이티브 디렉션용 텍스트 모델 클라이언트
type GeminiCreative struct {
	apiKeys []string
	model   string
}

// NewGeminiCreative - 크리에이티브 프로바이더 생성
func NewGeminiCreative() *GeminiCreative {
	cfg := config.GetConfig()

	if len(cfg.GeminiAPIKeys) == 0 {
		log.Println("❌ [Provider] No Gemini API keys configured")
		return nil
	}

	return &GeminiCreative{
		apiKeys: cfg.GeminiAPIKeys,
		model:   cfg.GeminiTextModel,
	}
}

// Complete - 시스템 지시문 + 사용자 메시지로 JSON 응답 요청
func (p *GeminiCreative) Complete(ctx context.Context, systemInstruction string, userMessage string) (string, error) {
	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(userMessage),
		},
	}

	result, err := generateContentWithRetry(
		ctx,
		p.apiKeys,
		p.model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{
					genai.NewPartFromText(systemInstruction),
				},
			},
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini completion failed: %w", err)
	}

	// 응답에서 텍스트 추출
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}

	return "", fmt.Errorf("no text in completion response")
}
