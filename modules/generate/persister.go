package generate

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"festiva-canvas-server/modules/common/model"
	"festiva-canvas-server/modules/common/utils"
)

// 동시 업로드 상한
const maxConcurrentUploads = 2

const webpQuality = 80

// ResultPersister - 합성 결과를 스토리지에 업로드하고 설명자로 변환
// 개별 업로드 실패는 인라인 data URL로 폴백, 전부 실패했을 때만 에러.
type ResultPersister struct {
	store ObjectStore
}

// NewResultPersister - Persister 생성
func NewResultPersister(store ObjectStore) *ResultPersister {
	return &ResultPersister{store: store}
}

// PersistAll - 배치 전체를 병렬 업로드 (입력 순서 유지)
func (p *ResultPersister) PersistAll(ctx context.Context, userID string, images []model.SynthImage) ([]model.ImageDescriptor, error) {
	if len(images) == 0 {
		return nil, ErrTotalPersistFailure
	}

	descriptors := make([]model.ImageDescriptor, len(images))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrentUploads)

	for i, img := range images {
		wg.Add(1)
		go func(idx int, img model.SynthImage) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			descriptors[idx] = p.persistOne(ctx, userID, img)
		}(i, img)
	}

	wg.Wait()

	delivered := 0
	for _, d := range descriptors {
		if d.URL != "" {
			delivered++
		}
	}
	if delivered == 0 {
		return nil, ErrTotalPersistFailure
	}

	// URL이 비어있는 슬롯 제거 (방어적, persistOne은 항상 URL을 채움)
	result := make([]model.ImageDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d.URL != "" {
			result = append(result, d)
		}
	}

	log.Printf("📤 이미지 저장 완료: %d/%d장", len(result), len(images))
	return result, nil
}

// persistOne - 단일 이미지 업로드. 실패해도 인라인 data URL 설명자를 반환.
func (p *ResultPersister) persistOne(ctx context.Context, userID string, img model.SynthImage) model.ImageDescriptor {
	data := img.Data
	contentType := img.MIMEType
	extension := "png"

	// WebP 변환은 best-effort, 실패하면 원본 그대로 업로드
	if webpData, err := utils.ConvertPNGToWebP(img.Data, webpQuality); err == nil {
		data = webpData
		contentType = "image/webp"
		extension = "webp"
	} else {
		log.Printf("⚠️ WebP 변환 실패, 원본 업로드: %v", err)
	}

	storagePath := fmt.Sprintf("festival-images/user-%s/festival_%d_%d.%s",
		userID, time.Now().Unix(), rand.Intn(10000), extension)

	url, err := p.store.Put(ctx, storagePath, data, contentType)
	if err != nil {
		// 스토리지 실패 시 이미지를 버리지 않고 inline으로 전달
		log.Printf("❌ 스토리지 업로드 실패, inline 폴백: %v", err)
		return model.ImageDescriptor{
			ID:        uuid.New().String(),
			URL:       utils.InlineDataURL(img.Data, img.MIMEType),
			CreatedAt: time.Now(),
		}
	}

	return model.ImageDescriptor{
		ID:          uuid.New().String(),
		URL:         url,
		StoragePath: storagePath,
		CreatedAt:   time.Now(),
	}
}
