package config

import (
	"strings"
	"time"

	"github.com/feedback-intel/core/internal/platform/logger"
)

type Config struct {
	// Persistence
	PostgresHost, PostgresPort, PostgresUser, PostgresPassword, PostgresName string
	PostgresPoolSize, PostgresOverflow                                       int

	// Cache / queue
	RedisAddr string

	// Vector store
	PineconeIndexName, PineconeIndexHost, PineconeAPIKey, PineconeNamespacePrefix string

	// Auth
	JWTSecretKey     string
	TokenLifetime    time.Duration
	AdminUsername    string
	AdminPassword    string
	ViewerUsername   string
	ViewerPassword   string

	// Rate limits (requests per minute, burst)
	RateLimitGeneralRPM, RateLimitGeneralBurst     int
	RateLimitAnalyticsRPM, RateLimitAnalyticsBurst int
	RateLimitAdminRPM, RateLimitAdminBurst         int
	RateLimitUploadRPM, RateLimitUploadBurst       int

	// CORS
	CORSAllowedOrigins []string

	// Feature flags
	SentimentModelHF bool
	EnglishOnlyIngest bool

	// Logging
	LogLevel  string
	JSONLog   bool
	LogFile   string

	// Worker
	WorkerConcurrency int

	// Cluster stage (C6)
	ClusterSimilarityThreshold float64
	UnassignedPoolThreshold    int

	// Grounded QA facade (C11)
	QAMaxQuestionChars int
	QAMaxTokenEstimate int
	QATimeout          time.Duration

	// OpenAI (QA facade + sentiment/embedding model interface)
	OpenAIAPIKey, OpenAIBaseURL, OpenAIModel, OpenAIEmbedModel string
}

func Load(log *logger.Logger) Config {
	return Config{
		PostgresHost:     GetEnv("POSTGRES_HOST", "localhost", log),
		PostgresPort:     GetEnv("POSTGRES_PORT", "5432", log),
		PostgresUser:     GetEnv("POSTGRES_USER", "postgres", log),
		PostgresPassword: GetEnv("POSTGRES_PASSWORD", "", log),
		PostgresName:     GetEnv("POSTGRES_NAME", "feedback", log),
		PostgresPoolSize: GetEnvAsInt("POSTGRES_POOL_SIZE", 10, log),
		PostgresOverflow: GetEnvAsInt("POSTGRES_POOL_OVERFLOW", 20, log),

		RedisAddr: GetEnv("REDIS_ADDR", "", log),

		PineconeIndexName:        GetEnv("PINECONE_INDEX_NAME", "", log),
		PineconeIndexHost:        GetEnv("PINECONE_INDEX_HOST", "", log),
		PineconeAPIKey:           GetEnv("PINECONE_API_KEY", "", log),
		PineconeNamespacePrefix:  GetEnv("PINECONE_NAMESPACE_PREFIX", "fb", log),

		JWTSecretKey:   GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		TokenLifetime:  GetEnvAsDuration("TOKEN_LIFETIME", 24*time.Hour, log),
		AdminUsername:  GetEnv("ADMIN_USERNAME", "admin", log),
		AdminPassword:  GetEnv("ADMIN_PASSWORD", "", log),
		ViewerUsername: GetEnv("VIEWER_USERNAME", "viewer", log),
		ViewerPassword: GetEnv("VIEWER_PASSWORD", "", log),

		RateLimitGeneralRPM:    GetEnvAsInt("RATE_LIMIT_GENERAL_RPM", 60, log),
		RateLimitGeneralBurst:  GetEnvAsInt("RATE_LIMIT_GENERAL_BURST", 10, log),
		RateLimitAnalyticsRPM:  GetEnvAsInt("RATE_LIMIT_ANALYTICS_RPM", 30, log),
		RateLimitAnalyticsBurst: GetEnvAsInt("RATE_LIMIT_ANALYTICS_BURST", 10, log),
		RateLimitAdminRPM:      GetEnvAsInt("RATE_LIMIT_ADMIN_RPM", 10, log),
		RateLimitAdminBurst:    GetEnvAsInt("RATE_LIMIT_ADMIN_BURST", 3, log),
		RateLimitUploadRPM:     GetEnvAsInt("RATE_LIMIT_UPLOAD_RPM", 5, log),
		RateLimitUploadBurst:   GetEnvAsInt("RATE_LIMIT_UPLOAD_BURST", 2, log),

		CORSAllowedOrigins: splitCSV(GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", log)),

		SentimentModelHF:  GetEnvAsBool("FEATURE_HF_SENTIMENT", false, log),
		EnglishOnlyIngest: GetEnvAsBool("FEATURE_ENGLISH_ONLY_INGEST", false, log),

		LogLevel: GetEnv("LOG_LEVEL", "info", log),
		JSONLog:  GetEnvAsBool("LOG_JSON", false, log),
		LogFile:  GetEnv("LOG_FILE", "", log),

		WorkerConcurrency: GetEnvAsInt("WORKER_CONCURRENCY", 4, log),

		ClusterSimilarityThreshold: GetEnvAsFloat("CLUSTER_SIMILARITY_THRESHOLD", 0.8, log),
		UnassignedPoolThreshold:    GetEnvAsInt("UNASSIGNED_POOL_THRESHOLD", 50, log),

		QAMaxQuestionChars: GetEnvAsInt("QA_MAX_QUESTION_CHARS", 1000, log),
		QAMaxTokenEstimate: GetEnvAsInt("QA_MAX_TOKEN_ESTIMATE", 4000, log),
		QATimeout:          GetEnvAsDuration("QA_TIMEOUT", 30*time.Second, log),

		OpenAIAPIKey:    GetEnv("OPENAI_API_KEY", "", log),
		OpenAIBaseURL:   GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log),
		OpenAIModel:     GetEnv("OPENAI_MODEL", "gpt-5.2", log),
		OpenAIEmbedModel: GetEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small", log),
	}
}

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
