// internal/mqtt/client.go
package mqtt

import (
	"fmt"
	"time"

	"cp1-controllers/internal/config"
	"cp1-controllers/internal/interfaces"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewClient MQTT 브로커 연결
func NewClient(cfg *config.Config, logger interfaces.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	// 재연결 시 구독 유지
	opts.SetCleanSession(false)
	opts.SetResumeSubs(true)

	// 연결 상태 콜백
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Infof("✅ MQTT client connected to %s", cfg.MQTTBroker)
	})

	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		logger.Errorf("❌ MQTT connection lost: %v", err)
	})

	opts.SetReconnectingHandler(func(c mqtt.Client, o *mqtt.ClientOptions) {
		logger.Warnf("MQTT reconnecting to %s", cfg.MQTTBroker)
	})

	client := mqtt.NewClient(opts)

	// 연결 시도
	if token := client.Connect(); token.WaitTimeout(30*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	} else if !client.IsConnected() {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out", cfg.MQTTBroker)
	}

	return client, nil
}
