package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string

	// Gemini API
	GeminiAPIKeys        []string // 429 대비 복수 키 지원 (콤마 구분)
	GeminiTextModel      string   // 크리에이티브 디렉션용 텍스트 모델
	ImageModelCandidates []string // 이미지 모델 후보 (선호 순서)
	ImageModelFallback   string   // 안정 폴백 모델

	// Server
	Port string

	// Generation
	DailyFreeLimit     int           // 무료 플랜 일일 생성 제한
	SubCountPerVariant int           // variant당 이미지 수 (clean/text 각각)
	ProviderTimeout    time.Duration // 이미지 생성 호출 타임아웃
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	// Redis UseTLS 파싱
	useTLS := true // 기본값
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	// DailyFreeLimit 파싱
	dailyLimit := 5 // 기본값 (무료 플랜 하루 5회)
	if limitStr := os.Getenv("DAILY_FREE_LIMIT"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			dailyLimit = parsed
		}
	}

	// SubCountPerVariant 파싱
	subCount := 2 // 기본값 (clean 2장 + text 2장)
	if countStr := os.Getenv("SUB_COUNT_PER_VARIANT"); countStr != "" {
		if parsed, err := strconv.Atoi(countStr); err == nil && parsed > 0 {
			subCount = parsed
		}
	}

	// ProviderTimeout 파싱 (초 단위)
	providerTimeout := 45 * time.Second
	if timeoutStr := os.Getenv("PROVIDER_TIMEOUT_SECONDS"); timeoutStr != "" {
		if parsed, err := strconv.Atoi(timeoutStr); err == nil && parsed > 0 {
			providerTimeout = time.Duration(parsed) * time.Second
		}
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),

		// Gemini API
		GeminiAPIKeys:   splitCSV(getEnv("GEMINI_API_KEYS", os.Getenv("GEMINI_API_KEY"))),
		GeminiTextModel: getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		ImageModelCandidates: splitCSV(getEnv("IMAGE_MODEL_CANDIDATES",
			"gemini-3-pro-image-preview,gemini-2.5-flash-image-preview,gemini-2.5-flash-image")),
		ImageModelFallback: getEnv("IMAGE_MODEL_FALLBACK", "gemini-2.0-flash-preview-image-generation"),

		// Server
		Port: getEnv("PORT", "8080"),

		// Generation
		DailyFreeLimit:     dailyLimit,
		SubCountPerVariant: subCount,
		ProviderTimeout:    providerTimeout,
	}

	// 필수 환경변수 검증
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s", globalConfig.SupabaseURL)
	log.Printf("   Gemini: text=%s, candidates=%v, fallback=%s",
		globalConfig.GeminiTextModel, globalConfig.ImageModelCandidates, globalConfig.ImageModelFallback)
	log.Printf("   Daily free limit: %d, images per variant: %d", globalConfig.DailyFreeLimit, globalConfig.SubCountPerVariant)

	return globalConfig, nil
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if len(c.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEYS is required")
	}
	if c.ImageModelFallback == "" {
		return fmt.Errorf("IMAGE_MODEL_FALLBACK is required")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitCSV - 콤마 구분 문자열을 슬라이스로 변환
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
