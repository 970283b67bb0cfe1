package generate

import (
	"context"
	"log"
	"sync"
	"time"

	"festiva-canvas-server/modules/common/model"
)

// BatchDispatcher - clean/text 두 variant를 병렬 호출해서 하나의 배치로 합침
type BatchDispatcher struct {
	provider SynthesisProvider
	subCount int
	timeout  time.Duration
}

// NewBatchDispatcher - Dispatcher 생성
func NewBatchDispatcher(provider SynthesisProvider, subCount int, timeout time.Duration) *BatchDispatcher {
	return &BatchDispatcher{
		provider: provider,
		subCount: subCount,
		timeout:  timeout,
	}
}

// GenerateHybridBatch - 텍스트 없는 variant + 헤드라인 variant 동시 생성
// 반환 순서는 항상 clean 먼저, text 나중. 양쪽 다 실패하면 빈 슬라이스 (에러 아님).
func (d *BatchDispatcher) GenerateHybridBatch(ctx context.Context, modelID string, pair PromptPair) []model.SynthImage {
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		cleanImages []model.SynthImage
		textImages  []model.SynthImage
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		images := d.generateVariant(ctx, modelID, pair.CleanPrompt, "clean")
		mu.Lock()
		cleanImages = images
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		images := d.generateVariant(ctx, modelID, pair.TextPrompt, "text")
		mu.Lock()
		textImages = images
		mu.Unlock()
	}()

	wg.Wait()

	// clean variant가 항상 앞
	merged := make([]model.SynthImage, 0, len(cleanImages)+len(textImages))
	merged = append(merged, cleanImages...)
	merged = append(merged, textImages...)

	usable := filterPlaceholders(merged)
	if len(usable) == 0 {
		log.Printf("⚠️ 모든 variant가 플레이스홀더/실패, 빈 배치 반환 (model: %s)", modelID)
	}

	return usable
}

// generateVariant - 단일 variant 호출, 타임아웃 + 개수 절단 적용
func (d *BatchDispatcher) generateVariant(ctx context.Context, modelID string, prompt string, variant string) []model.SynthImage {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	images, err := d.provider.Generate(callCtx, modelID, prompt, d.subCount)
	if err != nil {
		// 한쪽 variant 실패는 배치 전체를 죽이지 않는다
		log.Printf("❌ %s variant 생성 실패 (model: %s): %v", variant, modelID, err)
		return nil
	}

	// 모델이 요청보다 많이 돌려줘도 subCount까지만 사용
	if len(images) > d.subCount {
		images = images[:d.subCount]
	}

	log.Printf("🎨 %s variant 생성 완료: %d장", variant, len(images))
	return images
}

// filterPlaceholders - 이미지 바이트가 없는 슬롯 제거
func filterPlaceholders(images []model.SynthImage) []model.SynthImage {
	usable := make([]model.SynthImage, 0, len(images))
	for _, img := range images {
		if img.Placeholder || len(img.Data) == 0 {
			continue
		}
		usable = append(usable, img)
	}
	return usable
}
