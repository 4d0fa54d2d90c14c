package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 汇集订单服务的全部运行配置。
// 先读 YAML 文件，再用环境变量覆盖，便于容器化部署。
type Config struct {
	Service ServiceConfig `yaml:"service"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Jaeger  JaegerConfig  `yaml:"jaeger"`
	Log     LogConfig     `yaml:"log"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	HTTPAddr string `yaml:"httpAddr"` // /metrics 与 /healthz 监听地址
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	CommandTopic string   `yaml:"commandTopic"`
	EventTopic   string   `yaml:"eventTopic"`
	GroupID      string   `yaml:"groupId"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"` // 本地开发用人类可读输出
}

// ShutdownTimeout 是优雅关停各组件的统一时限。
const ShutdownTimeout = 10 * time.Second

// Default 返回本地开发可直接跑起来的缺省配置。
func Default() Config {
	return Config{
		Service: ServiceConfig{
			Name:     "order-service",
			HTTPAddr: ":8081",
		},
		MySQL: MySQLConfig{
			DSN: "root:root@tcp(localhost:3306)/omnia?charset=utf8mb4&parseTime=True&loc=Local",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			CommandTopic: "omnia.order.commands",
			EventTopic:   "omnia.order.events",
			GroupID:      "order-service-group",
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 读取配置：path 为空或文件不存在时只用缺省值加环境变量。
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "read config file %s", path)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.Wrapf(err, "parse config file %s", path)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv 用环境变量覆盖文件配置，键名沿用各组件的惯用变量名。
func (c *Config) applyEnv() {
	c.Service.Name = getEnv("SERVICE_NAME", c.Service.Name)
	c.Service.HTTPAddr = getEnv("HTTP_ADDR", c.Service.HTTPAddr)
	c.MySQL.DSN = getEnv("MYSQL_DSN", c.MySQL.DSN)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Kafka.CommandTopic = getEnv("KAFKA_COMMAND_TOPIC", c.Kafka.CommandTopic)
	c.Kafka.EventTopic = getEnv("KAFKA_EVENT_TOPIC", c.Kafka.EventTopic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)
	c.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Jaeger.Endpoint)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// getEnv 从环境变量读取配置，缺失时回退到指定值。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
