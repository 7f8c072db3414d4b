// internal/config/config.go
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

// 백엔드 선택 상수
const (
	BackendMQTT = "mqtt"
	BackendSim  = "sim"

	StorePostgres = "postgres"
	StoreNone     = "none"

	EventsMQTT  = "mqtt"
	EventsKafka = "kafka"
	EventsNone  = "none"
)

type Config struct {
	// Robot
	RobotSerialNumber string
	RobotManufacturer string
	TopicPrefix       string
	MapID             string
	RobotBackend      string

	// MQTT
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Database
	MissionStore string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string

	// Events
	EventsBackend string
	KafkaBrokers  []string
	EventsTopic   string

	// Battery
	BatteryCapacity     float64
	BatteryLowThreshold float64
	ChargeTopic         string

	// Mission
	GoalTimeout           time.Duration
	AssumedSpeed          float64
	ConfigurationID       int
	CancelOnLowBattery    bool
	CancelOnGoalTimeout   bool
	StartupDelay          time.Duration
	FaultInjectionDelay   time.Duration
	SimTickInterval       time.Duration
	SimTimeScale          float64
	ObstacleModelPath     string
	ConfigurationFilePath string
	WaypointFilePath      string

	// Application
	HTTPAddr string
	LogLevel string
}

// Load .env 파일과 환경 변수에서 설정을 읽습니다.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		RobotSerialNumber: getEnv("ROBOT_SERIAL_NUMBER", "mobile_base"),
		RobotManufacturer: getEnv("ROBOT_MANUFACTURER", "cp1"),
		TopicPrefix:       getEnv("TOPIC_PREFIX", "uagv/v2"),
		MapID:             getEnv("MAP_ID", "map"),
		RobotBackend:      strings.ToLower(getEnv("ROBOT_BACKEND", BackendSim)),

		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "cp1-controller"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MissionStore: strings.ToLower(getEnv("MISSION_STORE", StoreNone)),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "password"),
		DBName:       getEnv("DB_NAME", "cp1_missions"),

		EventsBackend: strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone)),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		EventsTopic:   getEnv("EVENTS_TOPIC", "cp1.missions"),

		ChargeTopic: getEnv("CHARGE_TOPIC", "mobile_base/commands/charge_level"),

		ObstacleModelPath:     getEnv("OBSTACLE_MODEL", "models/box.sdf"),
		ConfigurationFilePath: getEnv("CONF_FILE", "conf/conf.json"),
		WaypointFilePath:      getEnv("WAYPOINT_FILE", "conf/waypoints.yaml"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ConfigurationID, err = getEnvInt("CONFIGURATION_ID", 0); err != nil {
		return nil, err
	}
	if cfg.BatteryCapacity, err = getEnvFloat("BATTERY_CAPACITY", 1.2009); err != nil {
		return nil, err
	}
	if cfg.BatteryLowThreshold, err = getEnvFloat("BATTERY_LOW_THRESHOLD", 0.90); err != nil {
		return nil, err
	}
	if cfg.AssumedSpeed, err = getEnvFloat("ASSUMED_SPEED", 0.35); err != nil {
		return nil, err
	}
	if cfg.SimTimeScale, err = getEnvFloat("SIM_TIME_SCALE", 1.0); err != nil {
		return nil, err
	}
	if cfg.CancelOnLowBattery, err = getEnvBool("CANCEL_ON_LOW_BATTERY", false); err != nil {
		return nil, err
	}
	if cfg.CancelOnGoalTimeout, err = getEnvBool("CANCEL_ON_GOAL_TIMEOUT", false); err != nil {
		return nil, err
	}

	timeoutSeconds, err := getEnvInt("GOAL_TIMEOUT_SECONDS", 100)
	if err != nil {
		return nil, err
	}
	cfg.GoalTimeout = time.Duration(timeoutSeconds) * time.Second

	startupSeconds, err := getEnvInt("STARTUP_DELAY_SECONDS", 0)
	if err != nil {
		return nil, err
	}
	cfg.StartupDelay = time.Duration(startupSeconds) * time.Second

	faultSeconds, err := getEnvInt("FAULT_INJECTION_DELAY_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.FaultInjectionDelay = time.Duration(faultSeconds) * time.Second

	tickMillis, err := getEnvInt("SIM_TICK_MILLIS", 100)
	if err != nil {
		return nil, err
	}
	cfg.SimTickInterval = time.Duration(tickMillis) * time.Millisecond

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 설정 값 범위를 검사합니다.
func (c *Config) Validate() error {
	if c.BatteryCapacity <= 0 {
		return fmt.Errorf("BATTERY_CAPACITY must be positive, got %v", c.BatteryCapacity)
	}
	if c.BatteryLowThreshold <= 0 || c.BatteryLowThreshold > 1 {
		return fmt.Errorf("BATTERY_LOW_THRESHOLD must be in (0, 1], got %v", c.BatteryLowThreshold)
	}
	if c.AssumedSpeed <= 0 {
		return fmt.Errorf("ASSUMED_SPEED must be positive, got %v", c.AssumedSpeed)
	}
	if c.GoalTimeout <= 0 {
		return fmt.Errorf("GOAL_TIMEOUT_SECONDS must be positive")
	}
	switch c.RobotBackend {
	case BackendMQTT, BackendSim:
	default:
		return fmt.Errorf("unknown ROBOT_BACKEND %q", c.RobotBackend)
	}
	switch c.MissionStore {
	case StorePostgres, StoreNone:
	default:
		return fmt.Errorf("unknown MISSION_STORE %q", c.MissionStore)
	}
	switch c.EventsBackend {
	case EventsMQTT, EventsKafka, EventsNone:
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend)
	}
	return nil
}

// LowChargeLevel 저전압 판정 기준 충전량(Ah)
func (c *Config) LowChargeLevel() float64 {
	return c.BatteryLowThreshold * c.BatteryCapacity
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
