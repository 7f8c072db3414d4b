package testutil

import (
	"sync/atomic"
	"time"
)

// Config is a fixed ConfigProvider.
type Config struct {
	Serial       string
	Manufacturer string
	Prefix       string
	MapID        string
	GoalTimeout  time.Duration
}

func NewConfig() *Config {
	return &Config{
		Serial:       "turtlebot-01",
		Manufacturer: "cp1",
		Prefix:       "uagv/v2",
		MapID:        "cp1-map",
		GoalTimeout:  time.Second,
	}
}

func (c *Config) GetRobotSerialNumber() string { return c.Serial }
func (c *Config) GetRobotManufacturer() string { return c.Manufacturer }
func (c *Config) GetTopicPrefix() string { return c.Prefix }
func (c *Config) GetMapID() string { return c.MapID }
func (c *Config) GetLogLevel() string { return "debug" }
func (c *Config) GetGoalTimeout() time.Duration { return c.GoalTimeout }

// Headers is a counting HeaderIDGenerator.
type Headers struct {
	n atomic.Int64
}

func (h *Headers) GetNextHeaderID() int64 {
	return h.n.Add(1)
}
