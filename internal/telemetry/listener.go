// Package telemetry ingests camera telemetry published over MQTT. Every message
// carries a snapshot; storing it also counts as a heartbeat from the device.
package telemetry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"meter_reading/internal/capture"
	"meter_reading/internal/config"
	"meter_reading/internal/logger"
)

// SnapshotSink stores decoded snapshots. capture.Store satisfies it.
type SnapshotSink interface {
	Save(serial string, ts int64, snapType string, data []byte) (string, error)
}

// HeartbeatRecorder records device liveness.
type HeartbeatRecorder interface {
	Record(ctx context.Context, serial string, ts time.Time, ip string, metadata map[string]any) error
}

// Message is the telemetry payload published by the cameras.
type Message struct {
	TS     json.Number `json:"ts"`
	Values struct {
		DevMac   string `json:"devMac"`
		SnapType string `json:"snapType"`
		Image    string `json:"image"`
	} `json:"values"`
}

var errBadPayload = errors.New("telemetry: malformed payload")

const (
	connectTimeout = 10 * time.Second
	handleTimeout  = 15 * time.Second
	quiesceMillis  = 250
)

// Listener subscribes to the telemetry topic.
type Listener struct {
	cfg        config.MQTTConfig
	snapshots  SnapshotSink
	heartbeats HeartbeatRecorder
	log        *logger.Logger

	client mqtt.Client
}

func NewListener(cfg config.MQTTConfig, snapshots SnapshotSink, heartbeats HeartbeatRecorder, log *logger.Logger) *Listener {
	return &Listener{cfg: cfg, snapshots: snapshots, heartbeats: heartbeats, log: log}
}

// Start connects to the broker and subscribes. Reconnects are handled by the
// client; the subscription is renewed on every connect.
func (l *Listener) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", l.cfg.Broker, l.cfg.Port)).
		SetClientID(l.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if l.cfg.Username != "" {
		opts.SetUsername(l.cfg.Username)
		opts.SetPassword(l.cfg.Password)
	}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		tok := c.Subscribe(l.cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			hctx, cancel := context.WithTimeout(ctx, handleTimeout)
			defer cancel()
			if err := l.Handle(hctx, msg.Payload()); err != nil && l.log != nil {
				l.log.Errorw("telemetry_message_failed", "topic", msg.Topic(), "error", err)
			}
		})
		tok.Wait()
		if err := tok.Error(); err != nil {
			if l.log != nil {
				l.log.Errorw("telemetry_subscribe_failed", "topic", l.cfg.Topic, "error", err)
			}
			return
		}
		if l.log != nil {
			l.log.Infow("telemetry_subscribed", "broker", l.cfg.Broker, "topic", l.cfg.Topic)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if l.log != nil {
			l.log.Warnw("telemetry_connection_lost", "error", err)
		}
	})

	l.client = mqtt.NewClient(opts)
	tok := l.client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("telemetry: connect to %s timed out", l.cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("telemetry: connect to %s: %w", l.cfg.Broker, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (l *Listener) Stop() {
	if l.client != nil && l.client.IsConnected() {
		l.client.Disconnect(quiesceMillis)
	}
}

// Handle decodes one payload, records a heartbeat and stores the snapshot.
func (l *Listener) Handle(ctx context.Context, payload []byte) error {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	serial := capture.NormalizeSerial(msg.Values.DevMac)
	if serial == "" || msg.Values.Image == "" {
		return fmt.Errorf("%w: devMac and image are required", errBadPayload)
	}
	ts, err := msg.TS.Int64()
	if err != nil {
		return fmt.Errorf("%w: ts: %v", errBadPayload, err)
	}
	data, err := DecodeImage(msg.Values.Image)
	if err != nil {
		return err
	}

	// Unknown devices are rejected before anything touches the capture directory.
	meta := map[string]any{"source": "mqtt", "snap_type": msg.Values.SnapType}
	if err := l.heartbeats.Record(ctx, serial, time.UnixMilli(ts).UTC(), "", meta); err != nil {
		return fmt.Errorf("telemetry: record heartbeat for %s: %w", serial, err)
	}

	path, err := l.snapshots.Save(serial, ts, msg.Values.SnapType, data)
	if err != nil {
		return err
	}
	if l.log != nil {
		l.log.Infow("snapshot_saved", "device_serial", serial, "path", path, "bytes", len(data))
	}
	return nil
}

// DecodeImage decodes base64 image data, tolerating a data URL prefix.
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ","); ok {
			s = rest
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: image: %v", errBadPayload, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", errBadPayload)
	}
	return data, nil
}
