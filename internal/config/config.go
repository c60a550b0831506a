// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，由 Init 填充，供 main 使用。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Search        SearchConfig        `mapstructure:"search"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Bleve         BleveConfig         `mapstructure:"bleve"`
	Pagination    PaginationConfig    `mapstructure:"pagination"`
	Reindex       ReindexConfig       `mapstructure:"reindex"`
	Cache         CacheConfig         `mapstructure:"cache"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
	// AutoMigrate 为 true 时启动时自动建表，题目表由上游维护时应关闭。
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers         string `mapstructure:"brokers"`
	Topic           string `mapstructure:"topic"`
	GroupID         string `mapstructure:"group_id"`
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
	MaxAttempts     int64  `mapstructure:"max_attempts"`
}

// SearchConfig 选择搜索后端："elasticsearch" 或 "bleve"。
type SearchConfig struct {
	Backend string `mapstructure:"backend"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
	// IndexSize 是 from+size 能到达的最大深度，与 index.max_result_window 对应。
	IndexSize int `mapstructure:"index_size"`
	// IndexOmit 是在默认排除字段之外额外不写入索引的字段。
	IndexOmit []string `mapstructure:"index_omit"`
}

// BleveConfig 存储内嵌 bleve 索引的配置，Path 为空时使用内存索引。
type BleveConfig struct {
	Path string `mapstructure:"path"`
}

// PaginationConfig 存储各列表的默认分页大小。
type PaginationConfig struct {
	Problem int `mapstructure:"problem"`
}

// ReindexConfig 存储全量重建索引任务的配置。
type ReindexConfig struct {
	BatchSize   int `mapstructure:"batch_size"`
	ReportEvery int `mapstructure:"report_every"`
	Workers     int `mapstructure:"workers"`
}

// CacheConfig 存储 Redis 缓存相关的配置。
type CacheConfig struct {
	UnionTTL time.Duration `mapstructure:"union_ttl"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，Endpoint 为空时不归档任务报告。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("kafka.topic", "problem-events")
	v.SetDefault("kafka.group_id", "problem-search-go-consumer")
	v.SetDefault("kafka.dead_letter_topic", "problem-events-dlq")
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("search.backend", "elasticsearch")
	v.SetDefault("elasticsearch.addresses", "http://127.0.0.1:9200")
	v.SetDefault("elasticsearch.index_name", "problem")
	v.SetDefault("elasticsearch.index_size", 10000)
	v.SetDefault("pagination.problem", 20)
	v.SetDefault("reindex.batch_size", 100)
	v.SetDefault("reindex.report_every", 1000)
	v.SetDefault("reindex.workers", 1)
	v.SetDefault("cache.union_ttl", 5*time.Minute)
	v.SetDefault("minio.bucket_name", "reindex-reports")
}

// Load 从指定路径读取 YAML 配置，环境变量（PSEARCH_ 前缀）可覆盖文件中的值。
// configPath 为空时只使用默认值和环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// DefaultConfigPath 是服务默认读取的配置文件路径。
const DefaultConfigPath = "./configs/config.yaml"

// ConfigPath 返回配置文件路径：环境变量 PSEARCH_CONFIG 优先，否则为 DefaultConfigPath。
func ConfigPath() string {
	v := viper.New()
	v.SetEnvPrefix("PSEARCH")
	_ = v.BindEnv("config")
	v.SetDefault("config", DefaultConfigPath)
	return v.GetString("config")
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
