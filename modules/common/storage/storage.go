package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"festiva-canvas-server/modules/common/config"
)

// Client - Supabase Storage 업로드 클라이언트
type Client struct {
	httpClient *http.Client
}

// NewClient - Storage 클라이언트 생성
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Put - 오브젝트 업로드 후 공개 URL 반환
func (c *Client) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	cfg := config.GetConfig()

	log.Printf("📤 Uploading object to storage: %s (%d bytes)", path, len(data))

	// Supabase Storage API URL
	uploadURL := fmt.Sprintf("%s/storage/v1/object/festival-assets/%s", cfg.SupabaseURL, path)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	publicURL := cfg.SupabaseStorageBaseURL + path
	log.Printf("✅ Object uploaded successfully: %s", publicURL)
	return publicURL, nil
}
