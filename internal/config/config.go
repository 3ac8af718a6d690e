package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 应用配置
type Config struct {
	Env string `validate:"oneof=development production test"`

	// 抓取
	BaseURL      string        `validate:"required,url"`
	ProgramPath  string        `validate:"required"`
	ListingPages int           `validate:"min=1"`
	YearToken    string        `validate:"required"`
	Browser      string        `validate:"oneof=chrome http"`
	PageWait     time.Duration `validate:"min=0"`
	FetchDelay   time.Duration `validate:"min=0"`
	FetchTimeout time.Duration `validate:"min=0"`
	Headless     bool

	// 数据与存储
	DataDir     string `validate:"required"`
	DatabaseURL string
	VectorDims  int `validate:"min=0"`

	// 向量
	EmbeddingProvider string        `validate:"oneof=gemini ollama"`
	GeminiAPIKey      string        `validate:"required_if=EmbeddingProvider gemini"`
	GeminiModel       string        `validate:"required"`
	OllamaHost        string        `validate:"required,url"`
	OllamaModel       string        `validate:"required"`
	BatchSize         int           `validate:"min=1"`
	EmbedInterval     time.Duration `validate:"min=0"`

	// 投影
	UMAPNeighbors int     `validate:"min=2"`
	UMAPMinDist   float64 `validate:"gte=0"`
	UMAPSpread    float64 `validate:"gt=0"`
	UMAPRepulsion float64 `validate:"gt=0"`
	UMAPEpochs    int     `validate:"min=0"`
	UMAPSeed      int64

	// 服务
	Port         string `validate:"required,numeric"`
	SiteName     string `validate:"required"`
	TemplatesDir string
	StaticDir    string
	ReloadEvery  time.Duration
}

// Load 加载配置
func Load() *Config {
	return &Config{
		Env: getEnv("APP_ENV", "development"),

		BaseURL:      strings.TrimRight(getEnv("FESTIVAL_BASE_URL", "https://www.nowehoryzonty.pl"), "/") + "/",
		ProgramPath:  getEnv("FESTIVAL_PROGRAM_PATH", "program/index"),
		ListingPages: getEnvInt("FESTIVAL_LISTING_PAGES", 4),
		YearToken:    getEnv("FESTIVAL_YEAR_TOKEN", "25"),
		Browser:      getEnv("BROWSER", "chrome"),
		Headless:     getEnv("BROWSER_HEADLESS", "true") != "false",
		PageWait:     getEnvDuration("PAGE_WAIT", time.Second),
		FetchDelay:   getEnvDuration("FETCH_DELAY", 500*time.Millisecond),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		DataDir:      getEnv("DATA_DIR", "data"),
		TemplatesDir: getEnv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:    getEnv("STATIC_DIR", "./web/static"),
		ReloadEvery:  getEnvDuration("DATASET_RELOAD", 5*time.Minute),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		VectorDims:   getEnvInt("VECTOR_DIMS", 0),

		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		GeminiModel:       getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-exp-03-07"),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "nomic-embed-text"),
		BatchSize:         getEnvInt("EMBED_BATCH_SIZE", 10),
		EmbedInterval:     getEnvDuration("EMBED_INTERVAL", 20*time.Second),

		UMAPNeighbors: getEnvInt("UMAP_NEIGHBORS", 20),
		UMAPMinDist:   getEnvFloat("UMAP_MIN_DIST", 0.1),
		UMAPSpread:    getEnvFloat("UMAP_SPREAD", 2),
		UMAPRepulsion: getEnvFloat("UMAP_REPULSION", 2),
		UMAPEpochs:    getEnvInt("UMAP_EPOCHS", 0),
		UMAPSeed:      int64(getEnvInt("UMAP_SEED", 42)),

		Port:     getEnv("PORT", "5005"),
		SiteName: getEnv("SITE_NAME", "Nowe Horyzonty · mapa filmów"),
	}
}

// Validate 校验抓取与服务所需配置（不要求向量服务凭证）
func (c *Config) Validate() error {
	if err := validator.New().StructExcept(c, "GeminiAPIKey"); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	return nil
}

// ValidateEmbedding 在 Validate 的基础上要求向量服务凭证齐全
func (c *Config) ValidateEmbedding() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	return nil
}

// ListingURLs 返回节目单分页地址：首页 + ?page=1..N-1
func (c *Config) ListingURLs() []string {
	base := c.BaseURL + strings.TrimLeft(c.ProgramPath, "/")
	pages := []string{base}
	for i := 1; i < c.ListingPages; i++ {
		pages = append(pages, fmt.Sprintf("%s?page=%d", base, i))
	}
	return pages
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvDuration 支持 "1500ms" 这样的写法，也兼容纯数字（按毫秒）
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
