package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"marigold-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (Tier-2 cache and decision ledger)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"marigold"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`

	// Redis (judge quota tracking)
	RedisEnabled  bool   `env:"REDIS_ENABLED" env-default:"true"`
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka Consumer (scrape pipeline output - ingestion)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"scraped-listings"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"marigold-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer settings
	KafkaProducerEnabled bool   `env:"KAFKA_PRODUCER_ENABLED" env-default:"true"`
	KafkaOutputTopic     string `env:"KAFKA_OUTPUT_TOPIC" env-default:"listing-events"`
	KafkaBatchSize       int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout    int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks    int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression     string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Cache tiers
	Tier1TTL        time.Duration `env:"CACHE_TIER1_TTL" env-default:"2m"`
	Tier1MaxEntries int           `env:"CACHE_TIER1_MAX_ENTRIES" env-default:"1000"`
	Tier2TTL        time.Duration `env:"CACHE_TIER2_TTL" env-default:"24h"`
	SearchLimit     int           `env:"CACHE_SEARCH_LIMIT" env-default:"200"`

	// Duplicate resolution
	DedupPlatforms          []string      `env:"DEDUP_PLATFORMS" env-default:"olx,cardekho,spinny,cars24"`
	DedupConsensusThreshold float64       `env:"DEDUP_CONSENSUS_THRESHOLD" env-default:"0.85"`
	DedupMaxCandidates      int           `env:"DEDUP_MAX_CANDIDATES" env-default:"5"`
	DedupJudgeTimeout       time.Duration `env:"DEDUP_JUDGE_TIMEOUT" env-default:"30s"`
	DedupPlatformTimeout    time.Duration `env:"DEDUP_PLATFORM_TIMEOUT" env-default:"2m"`
	DedupAutoResolve        bool          `env:"DEDUP_AUTO_RESOLVE" env-default:"true"`
	DedupLedgerRetention    time.Duration `env:"DEDUP_LEDGER_RETENTION" env-default:"2160h"` // 90 days

	// Candidate retrieval (scrape service)
	ScrapeServiceURL string `env:"SCRAPE_SERVICE_URL" env-default:"http://localhost:8000"`

	// LLM judges. Parallel lists, one entry per judge; a resolution needs at
	// least three configured judges to be meaningful.
	JudgeNames       []string      `env:"JUDGE_NAMES" env-default:""`
	JudgeEndpoints   []string      `env:"JUDGE_ENDPOINTS" env-default:""`
	JudgeModels      []string      `env:"JUDGE_MODELS" env-default:""`
	JudgeAPIKeys     []string      `env:"JUDGE_API_KEYS" env-default:""`
	JudgeMaxTokens   int           `env:"JUDGE_MAX_TOKENS" env-default:"500"`
	JudgeQuotaLimit  int64         `env:"JUDGE_QUOTA_LIMIT" env-default:"60"`
	JudgeQuotaWindow time.Duration `env:"JUDGE_QUOTA_WINDOW" env-default:"1m"`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" env-default:"false"`
	TracingEndpoint   string  `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol   string  `env:"TRACING_PROTOCOL" env-default:"grpc"`
	TracingInsecure   bool    `env:"TRACING_INSECURE" env-default:"true"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" env-default:"1.0"`
}

// JudgeSpec is one resolved judge configuration.
type JudgeSpec struct {
	Name     string
	Endpoint string
	Model    string
	APIKey   string
}

// Judges zips the parallel judge lists. Entries without an endpoint are
// skipped; missing models and keys default to empty.
func (c Config) Judges() []JudgeSpec {
	specs := make([]JudgeSpec, 0, len(c.JudgeNames))
	for i, name := range c.JudgeNames {
		if name == "" || i >= len(c.JudgeEndpoints) || c.JudgeEndpoints[i] == "" {
			continue
		}
		spec := JudgeSpec{Name: name, Endpoint: c.JudgeEndpoints[i]}
		if i < len(c.JudgeModels) {
			spec.Model = c.JudgeModels[i]
		}
		if i < len(c.JudgeAPIKeys) {
			spec.APIKey = c.JudgeAPIKeys[i]
		}
		specs = append(specs, spec)
	}
	return specs
}
