package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"festiva-canvas-server/modules/common/config"
	"festiva-canvas-server/modules/common/model"
)

// GeminiSynthesizer - Gemini 기반 이미지 합성 프로바이더
type GeminiSynthesizer struct {
	apiKeys []string
}

// NewGeminiSynthesizer - 합성 프로바이더 생성
func NewGeminiSynthesizer() *GeminiSynthesizer {
	cfg := config.GetConfig()

	if len(cfg.GeminiAPIKeys) == 0 {
		log.Println("❌ [Provider] No Gemini API keys configured")
		return nil
	}

	return &GeminiSynthesizer{
		apiKeys: cfg.GeminiAPIKeys,
	}
}

// Probe - 모델 존재/권한 확인용 최소 요청
// 반환값은 HTTP 계열 상태 코드 (성공이면 200, nil 에러)
func (p *GeminiSynthesizer) Probe(ctx context.Context, modelID string) (int, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKeys[0],
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return http.StatusServiceUnavailable, fmt.Errorf("failed to create genai client: %w", err)
	}

	if _, err := client.Models.Get(ctx, modelID, nil); err != nil {
		return statusFromError(err), err
	}

	return http.StatusOK, nil
}

// Generate - 프롬프트 1개로 count장 이미지 생성
// 슬롯별로 실제 이미지가 없으면 Placeholder로 태깅해서 반환
func (p *GeminiSynthesizer) Generate(ctx context.Context, modelID string, prompt string, count int) ([]model.SynthImage, error) {
	if count <= 0 {
		count = 1
	}

	log.Printf("🎨 [Provider] Calling Gemini API (model: %s, count: %d, prompt length: %d)",
		modelID, count, len(prompt))

	// Content 생성
	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
		},
	}

	result, err := generateContentWithRetry(
		ctx,
		p.apiKeys,
		modelID,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			CandidateCount: int32(count),
			ImageConfig: &genai.ImageConfig{
				AspectRatio: "1:1",
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	// 후보별로 이미지 추출 (이미지는 InlineData로 반환됨)
	images := make([]model.SynthImage, 0, len(result.Candidates))
	for _, candidate := range result.Candidates {
		img := model.SynthImage{MIMEType: "text/plain", Placeholder: true}

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 &&
					strings.HasPrefix(part.InlineData.MIMEType, "image/") {
					img = model.SynthImage{
						Data:     part.InlineData.Data,
						MIMEType: part.InlineData.MIMEType,
					}
					break
				}
			}
		}

		if img.Placeholder {
			log.Printf("⚠️ [Provider] Candidate returned no image data, tagging as placeholder")
		}
		images = append(images, img)
	}

	return images, nil
}

// statusFromError - genai 에러에서 HTTP 상태 코드 추출
func statusFromError(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return apiErr.Code
	}

	// 구조화된 에러가 아니면 문자열에서 추정
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "404") || strings.Contains(strings.ToLower(errStr), "not found"):
		return http.StatusNotFound
	case strings.Contains(errStr, "403") || strings.Contains(strings.ToLower(errStr), "permission"):
		return http.StatusForbidden
	case strings.Contains(errStr, "401"):
		return http.StatusUnauthorized
	case strings.Contains(errStr, "400"):
		return http.StatusBadRequest
	case is429Error(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}
