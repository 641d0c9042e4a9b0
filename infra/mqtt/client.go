package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremon "github.com/kilianp07/hems/core/monitoring"
	coremqtt "github.com/kilianp07/hems/core/mqtt"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

type reading[T any] struct {
	value T
	at    time.Time
	set   bool
}

// Client talks to an evcc instance over MQTT. It caches the last values
// published for the managed loadpoint and the site battery, and sends
// loadpoint mode commands.
type Client struct {
	cli    pahoClient
	cfg    Config
	topics coremqtt.Topics
	log    logger.Logger
	now    func() time.Time

	mu          sync.RWMutex
	mode        reading[model.ChargeMode]
	connected   reading[bool]
	charging    reading[bool]
	vehicleName reading[string]
	battery     reading[float64]
	vehicleSoC  map[string]reading[float64]
	onPlug      func(connected bool)
}

// NewClient prepares a client for the broker of cfg. It does not connect;
// callbacks such as OnPlugChange are registered before Connect.
func NewClient(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:        cfg,
		topics:     coremqtt.Topics{Prefix: cfg.TopicPrefix},
		log:        logger.New("mqtt_client"),
		now:        time.Now,
		vehicleSoC: make(map[string]reading[float64]),
	}
	opts.OnConnect = func(pc paho.Client) {
		c.log.Infof("MQTT connected")
		c.subscribe(pc)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		c.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		c.log.Warnf("reconnecting to MQTT broker")
	}
	c.cli = newMQTTClient(opts)
	return c, nil
}

// Connect connects to the broker and subscribes to the evcc topics.
func (c *Client) Connect() error {
	if token := c.cli.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.Broker, token.Error())
	}
	return nil
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

func (c *Client) subscribe(s subscriber) {
	qos := c.cfg.qos("telemetry")
	for _, topic := range []string{c.topics.LoadpointWildcard(c.cfg.Loadpoint), c.topics.BatterySoC()} {
		if token := s.Subscribe(topic, qos, c.onMessage); token.Wait() && token.Error() != nil {
			c.log.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
}

// OnPlugChange registers fn to be called when the vehicle plugs in or out.
func (c *Client) OnPlugChange(fn func(connected bool)) {
	c.mu.Lock()
	c.onPlug = fn
	c.mu.Unlock()
}

func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	c.handle(msg.Topic(), strings.TrimSpace(string(msg.Payload())))
}

func (c *Client) handle(topic, payload string) {
	now := c.now()
	if topic == c.topics.BatterySoC() {
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			c.log.Warnf("bad battery soc %q: %v", payload, err)
			return
		}
		c.mu.Lock()
		c.battery = reading[float64]{value: v, at: now, set: true}
		c.mu.Unlock()
		return
	}
	n, leaf, ok := c.topics.ParseLoadpoint(topic)
	if !ok || n != c.cfg.Loadpoint {
		return
	}
	var plugged func(bool)
	var plugState bool
	c.mu.Lock()
	switch leaf {
	case coremqtt.LeafMode:
		c.mode = reading[model.ChargeMode]{value: model.ChargeMode(payload), at: now, set: true}
	case coremqtt.LeafConnected:
		v := payload == "true"
		if c.connected.set && c.connected.value != v && c.onPlug != nil {
			plugged, plugState = c.onPlug, v
		}
		c.connected = reading[bool]{value: v, at: now, set: true}
	case coremqtt.LeafCharging:
		c.charging = reading[bool]{value: payload == "true", at: now, set: true}
	case coremqtt.LeafVehicleName:
		c.vehicleName = reading[string]{value: payload, at: now, set: true}
	case coremqtt.LeafVehicleSoC:
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			c.mu.Unlock()
			c.log.Warnf("bad vehicle soc %q: %v", payload, err)
			return
		}
		c.vehicleSoC[c.vehicleName.value] = reading[float64]{value: v, at: now, set: true}
	}
	c.mu.Unlock()
	if plugged != nil {
		plugged(plugState)
	}
}

// SetMode publishes a mode command for the managed loadpoint, retrying
// with exponential backoff.
func (c *Client) SetMode(ctx context.Context, mode model.ChargeMode) error {
	if !mode.Valid() {
		return fmt.Errorf("mqtt: invalid mode %q", mode)
	}
	topic := c.topics.ModeSet(c.cfg.Loadpoint)
	backoff := time.Duration(c.cfg.BackoffMS) * time.Millisecond
	var err error
retry:
	for attempt := 0; ; attempt++ {
		token := c.cli.Publish(topic, c.cfg.qos("command"), false, string(mode))
		if !token.WaitTimeout(5 * time.Second) {
			err = fmt.Errorf("publish %s: timeout", topic)
		} else {
			err = token.Error()
		}
		if err == nil {
			c.log.Infof("set mode %s on %s", mode, topic)
			return nil
		}
		c.log.Errorf("publish attempt %d failed: %v", attempt+1, err)
		if attempt >= c.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(backoff * time.Duration(1<<attempt)):
		}
	}
	coremon.CaptureException(err, map[string]string{
		"module":    "mqtt",
		"loadpoint": strconv.Itoa(c.cfg.Loadpoint),
		"mode":      string(mode),
	})
	return fmt.Errorf("mqtt: set mode %s: %w", mode, err)
}

// Mode returns the last mode evcc reported for the managed loadpoint.
func (c *Client) Mode(ctx context.Context) (model.ChargeMode, error) {
	if err := ctx.Err(); err != nil {
		return model.ModeNone, err
	}
	if !c.cli.IsConnected() {
		return model.ModeNone, coremqtt.ErrNotConnected
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.mode.set {
		return model.ModeNone, fmt.Errorf("loadpoint %d mode: %w", c.cfg.Loadpoint, coremqtt.ErrNoData)
	}
	return c.mode.value, nil
}

// BatterySoC returns the site battery state of charge in percent.
func (c *Client) BatterySoC(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	r := c.battery
	c.mu.RUnlock()
	return c.fresh(r, "battery soc")
}

func (c *Client) fresh(r reading[float64], what string) (float64, error) {
	if !r.set {
		return 0, fmt.Errorf("%s: %w", what, coremqtt.ErrNoData)
	}
	if age := c.now().Sub(r.at); age > c.cfg.StaleAfter {
		return 0, fmt.Errorf("%s last seen %s ago: %w", what, age.Round(time.Second), coremqtt.ErrStale)
	}
	return r.value, nil
}

// Vehicles returns the telemetry of the given vehicles. A vehicle is
// connected when it is the one evcc reports on the plugged loadpoint; with a
// single configured vehicle an unnamed connection is attributed to it. The
// SoC of a connected vehicle must be fresh; disconnected vehicles keep
// their last known SoC and a zero UpdatedAt when none was ever seen.
func (c *Client) Vehicles(ctx context.Context, ids []string) ([]model.VehicleState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	plugged := ""
	if c.connected.value {
		plugged = c.vehicleName.value
		if plugged == "" && len(ids) == 1 {
			plugged = ids[0]
		}
	}
	out := make([]model.VehicleState, 0, len(ids))
	for _, id := range ids {
		st := model.VehicleState{ID: id, Connected: id == plugged}
		r, ok := c.vehicleSoC[id]
		if !ok && st.Connected {
			r, ok = c.vehicleSoC[""]
		}
		if st.Connected {
			st.Charging = c.charging.value
			v, err := c.fresh(r, "vehicle "+id+" soc")
			if err != nil {
				return nil, err
			}
			st.SoC, st.UpdatedAt = v, r.at
		} else if ok {
			st.SoC, st.UpdatedAt = r.value, r.at
		}
		out = append(out, st)
	}
	return out, nil
}

// Disconnect gracefully closes the MQTT connection.
func (c *Client) Disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}
