// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "inventory-pos-service"
	ServiceVersion = "0.3.0"
)

// Config holds configuration knobs for HTTP server, storage, sale processing,
// alert workers and telemetry.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	StoreDriver string
	DatabaseDSN string
	DBLogLevel  string
	SeedDemo    bool

	SaleItemPolicy       string
	SalesListLimit       int
	DashboardRecentSales int
	DashboardTopProducts int
	DefaultReorderLevel  int64

	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int

	KafkaBrokers    []string
	KafkaAlertTopic string

	OtelEndpoint   string
	OtelAuthHeader string
	OtelInsecure   bool
	LogLevel       string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func listenv(key string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("WORKER_MIN", 1)
	maxWorkers := atoienv("WORKER_MAX", 4)
	initialWorkers := atoienv("WORKER_COUNT", minWorkers)
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),

		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", "mysql")),
		DatabaseDSN: getenv("DATABASE_DSN", "root:root@tcp(localhost:3306)/inventory_db?charset=utf8mb4&parseTime=True&loc=UTC"),
		DBLogLevel:  strings.ToLower(getenv("DB_LOG_LEVEL", "warn")),
		SeedDemo:    boolenv("SEED_DEMO", false),

		SaleItemPolicy:       strings.ToLower(getenv("SALE_ITEM_POLICY", "lenient")),
		SalesListLimit:       atoienv("SALES_LIST_LIMIT", 100),
		DashboardRecentSales: atoienv("DASHBOARD_RECENT_SALES", 10),
		DashboardTopProducts: atoienv("DASHBOARD_TOP_PRODUCTS", 7),
		DefaultReorderLevel:  int64(atoienv("DEFAULT_REORDER_LEVEL", 5)),

		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", 500),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", 100),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", 6),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", 5000),

		KafkaBrokers:    listenv("KAFKA_BROKERS"),
		KafkaAlertTopic: getenv("KAFKA_ALERT_TOPIC", "inventory.low-stock"),

		OtelEndpoint:   getenv("OTEL_ENDPOINT", ""),
		OtelAuthHeader: getenv("OTEL_AUTH_HEADER", ""),
		OtelInsecure:   boolenv("OTEL_INSECURE", false),
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
	}
}
