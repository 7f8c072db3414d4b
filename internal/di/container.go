// internal/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cp1-controllers/internal/api"
	"cp1-controllers/internal/battery"
	"cp1-controllers/internal/config"
	"cp1-controllers/internal/confstore"
	"cp1-controllers/internal/database"
	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/events"
	"cp1-controllers/internal/goal"
	"cp1-controllers/internal/interfaces"
	"cp1-controllers/internal/mission"
	cp1mqtt "cp1-controllers/internal/mqtt"
	"cp1-controllers/internal/obstacle"
	"cp1-controllers/internal/redis"
	"cp1-controllers/internal/repository"
	"cp1-controllers/internal/scenario"
	"cp1-controllers/internal/services"
	"cp1-controllers/internal/sim"
	"cp1-controllers/internal/waypoint"

	"gorm.io/gorm"
)

// defaultObstacleModel 모델 파일이 없을 때 사용하는 0.5m 박스
const defaultObstacleModel = `<?xml version="1.0"?>
<sdf version="1.6">
  <model name="box">
    <static>true</static>
    <link name="link">
      <collision name="collision"><geometry><box><size>0.5 0.5 0.5</size></box></geometry></collision>
      <visual name="visual"><geometry><box><size>0.5 0.5 0.5</size></box></geometry></visual>
    </link>
  </model>
</sdf>`

// Container 의존성 주입 컨테이너
type Container struct {
	// Core Services
	Settings    *config.Config
	Config      interfaces.ConfigProvider
	Logger      interfaces.Logger
	HeaderIDGen interfaces.HeaderIDGenerator

	// Infra Services (백엔드 설정에 따라 nil)
	Cache            interfaces.CacheService
	MessagePublisher interfaces.MessagePublisher
	DB               *gorm.DB
	StateCache       *services.StateCache

	// Robot
	Environment environment.Environment
	Executor    goal.Executor
	World       *sim.World

	// Business Services
	Conf        *confstore.Store
	Map         *waypoint.Map
	Battery     *battery.Monitor
	Registry    *obstacle.Registry
	Goals       *goal.Client
	Coordinator *mission.Coordinator
	Predictor   *mission.Predictor
	Missions    repository.MissionRepository
	Events      events.Publisher

	mqttExecutor *goal.MQTTExecutor
	readings     <-chan float64
	cancel       context.CancelFunc
	worldDone    chan struct{}
}

// NewContainer 새로운 컨테이너 생성. ctx 가 끝나면 백그라운드 작업도 멈춤
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	ctx, cancel := context.WithCancel(ctx)
	container := &Container{Settings: cfg, cancel: cancel}

	// 1. 기본 서비스들 초기화
	container.initCoreServices(cfg)

	// 2. 설정 파일 로드
	if err := container.initStores(cfg); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}

	// 3. 인프라 서비스들 초기화
	if err := container.initInfraServices(ctx, cfg); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to init infra services: %w", err)
	}

	// 4. 로봇 백엔드 초기화
	if err := container.initRobot(ctx, cfg); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to init robot backend: %w", err)
	}

	// 5. 비즈니스 서비스들 초기화
	if err := container.initBusinessServices(ctx, cfg); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to init business services: %w", err)
	}

	return container, nil
}

// initCoreServices 핵심 서비스들 초기화
func (c *Container) initCoreServices(cfg *config.Config) {
	c.Config = services.NewConfigProvider(cfg)
	c.Logger = services.NewLogger(c.Config.GetLogLevel())
	c.HeaderIDGen = services.NewHeaderIDGenerator()
}

// initStores 설정 저장소와 웨이포인트 맵 로드
func (c *Container) initStores(cfg *config.Config) error {
	conf, err := confstore.Load(cfg.ConfigurationFilePath)
	if err != nil {
		return err
	}
	c.Conf = conf

	wm, err := waypoint.Load(cfg.WaypointFilePath)
	if err != nil {
		return err
	}
	c.Map = wm

	c.Logger.Infof("📄 Loaded %d configurations and %d waypoints", len(conf.Entries()), len(wm.All()))
	return nil
}

// initInfraServices 인프라 서비스들 초기화
func (c *Container) initInfraServices(ctx context.Context, cfg *config.Config) error {
	if cfg.RobotBackend == config.BackendMQTT || cfg.EventsBackend == config.EventsMQTT {
		client, err := cp1mqtt.NewClient(cfg, c.Logger)
		if err != nil {
			return fmt.Errorf("mqtt init failed: %w", err)
		}
		c.MessagePublisher = services.NewMessagePublisher(client, c.Logger)
	}

	if cfg.RobotBackend == config.BackendMQTT {
		redisClient, err := redis.NewRedisClient(cfg)
		if err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
		c.Cache = services.NewCacheService(redisClient)
	}

	if cfg.MissionStore == config.StorePostgres {
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
		c.DB = db
		c.Missions = repository.NewMissionRepository(db)
	}

	switch cfg.EventsBackend {
	case config.EventsMQTT:
		c.Events = events.NewMQTTPublisher(c.MessagePublisher, cfg.EventsTopic, c.Logger)
	case config.EventsKafka:
		pub, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.EventsTopic, c.Logger)
		if err != nil {
			return fmt.Errorf("kafka init failed: %w", err)
		}
		c.Events = pub
	default:
		c.Events = events.Nop{}
	}

	return nil
}

// initRobot 시뮬레이터 또는 MQTT 로봇 연결
func (c *Container) initRobot(ctx context.Context, cfg *config.Config) error {
	if cfg.RobotBackend == config.BackendSim {
		speed, load := cfg.AssumedSpeed, 0.0
		if entry, err := c.Conf.Get(cfg.ConfigurationID); err == nil {
			speed, load = entry.Speed, entry.PowerLoad
		}
		c.World = sim.NewWorld(sim.Options{
			Capacity:  cfg.BatteryCapacity,
			Charge:    cfg.BatteryCapacity,
			Speed:     speed,
			PowerLoad: load,
			Tick:      cfg.SimTickInterval,
			TimeScale: cfg.SimTimeScale,
		}, c.Logger)
		c.Environment = c.World
		c.Executor = c.World
		c.readings = c.World.Readings()

		c.worldDone = make(chan struct{})
		go func() {
			defer close(c.worldDone)
			if err := c.World.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.Logger.Errorf("❌ Simulated world stopped: %v", err)
			}
		}()
		c.Logger.Infof("🧪 Using simulated robot (speed %.2f m/s)", speed)
		return nil
	}

	c.StateCache = services.NewStateCache(c.Cache, c.MessagePublisher, c.Config, c.Logger)
	if err := c.StateCache.Start(); err != nil {
		return err
	}
	c.Environment = environment.NewMQTTEnvironment(c.MessagePublisher, c.Config, c.HeaderIDGen, c.StateCache, c.Logger)

	c.mqttExecutor = goal.NewMQTTExecutor(c.MessagePublisher, c.Config, c.HeaderIDGen, c.Logger)
	if err := c.mqttExecutor.Start(); err != nil {
		return err
	}
	c.Executor = c.mqttExecutor

	readings, err := battery.SubscribeMQTT(c.MessagePublisher, cfg.ChargeTopic, c.Logger)
	if err != nil {
		return err
	}
	c.readings = readings
	c.Logger.Infof("📡 Using MQTT robot %s/%s", cfg.RobotManufacturer, cfg.RobotSerialNumber)
	return nil
}

// initBusinessServices 비즈니스 서비스들 초기화
func (c *Container) initBusinessServices(ctx context.Context, cfg *config.Config) error {
	c.Battery = battery.NewMonitor(cfg.BatteryCapacity, cfg.BatteryLowThreshold, c.Logger)
	if c.StateCache != nil {
		c.Battery.WithStore(c.StateCache)
	}
	c.Battery.Start(ctx, c.readings)

	c.Registry = obstacle.NewRegistry(c.Environment, c.obstacleModel(cfg.ObstacleModelPath), c.Logger)
	if c.Cache != nil {
		c.Registry.WithStore(obstacle.NewCacheStore(c.Cache, c.Map.MapID()))
		restored, err := c.Registry.Restore(ctx)
		if err != nil {
			return err
		}
		if restored > 0 {
			c.Logger.Infof("♻️ Restored %d obstacles", restored)
		}
	}

	c.Goals = goal.NewClient(c.Executor, c.Logger).WithCancelOnTimeout(cfg.CancelOnGoalTimeout)
	c.Predictor, c.Coordinator = c.missionServices(c.speedFor(cfg.ConfigurationID))
	return nil
}

// speedFor 설정 ID 의 주행 속도. 없으면 ASSUMED_SPEED
func (c *Container) speedFor(configID int) float64 {
	speed, err := c.Conf.Speed(configID)
	if err != nil {
		c.Logger.Warnf("Configuration %d has no speed, assuming %.2f m/s: %v", configID, c.Settings.AssumedSpeed, err)
		return c.Settings.AssumedSpeed
	}
	return speed
}

func (c *Container) missionServices(speed float64) (*mission.Predictor, *mission.Coordinator) {
	return mission.NewPredictor(speed), mission.NewCoordinator(c.Goals, c.Battery, c.Logger, mission.Options{
		GoalTimeout:        c.Config.GetGoalTimeout(),
		Speed:              speed,
		CancelOnLowBattery: c.Settings.CancelOnLowBattery,
	})
}

func (c *Container) obstacleModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		c.Logger.Warnf("Obstacle model %s not readable, using built-in box: %v", path, err)
		return defaultObstacleModel
	}
	return string(data)
}

// NewRunner 시나리오 러너 생성. 다른 설정 ID 를 요청하면 그 속도로 예측기/코디네이터를 다시 만듦
func (c *Container) NewRunner(opts scenario.Options) (*scenario.Runner, error) {
	if opts.ConfigurationID != c.Settings.ConfigurationID {
		if speed := c.speedFor(opts.ConfigurationID); speed != c.Predictor.Speed() {
			c.Predictor, c.Coordinator = c.missionServices(speed)
			if c.World != nil {
				c.World.SetSpeed(speed)
			}
		}
	}

	return scenario.NewRunner(scenario.Deps{
		Env:        c.Environment,
		Registry:   c.Registry,
		Battery:    c.Battery,
		Missions:   c.Coordinator,
		Predictor:  c.Predictor,
		Map:        c.Map,
		Conf:       c.Conf,
		Repository: c.Missions,
		Events:     c.Events,
		Logger:     c.Logger,
	}, opts)
}

// NewAPIHandler 상태 API 핸들러 생성
func (c *Container) NewAPIHandler() *api.Handler {
	return api.NewHandler(c.Battery, c.Registry, c.Environment, c.Missions, c.Logger)
}

// Cleanup 리소스 정리
func (c *Container) Cleanup() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.Battery != nil {
		select {
		case <-c.Battery.Done():
		case <-time.After(time.Second):
		}
	}
	if c.worldDone != nil {
		<-c.worldDone
	}
	if c.mqttExecutor != nil {
		c.mqttExecutor.Stop()
	}
	if c.StateCache != nil {
		c.StateCache.Stop()
	}
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			c.Logger.Warnf("Failed to close event publisher: %v", err)
		}
	}
	if c.DB != nil {
		if err := database.Close(c.DB); err != nil {
			c.Logger.Warnf("Failed to close database: %v", err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warnf("Failed to close redis: %v", err)
		}
	}
	if c.MessagePublisher != nil {
		c.MessagePublisher.Disconnect(250)
	}
	c.Logger.Infof("Container cleanup completed")
}
