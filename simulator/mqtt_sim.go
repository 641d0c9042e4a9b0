package main

import (
	"fmt"
	"log"
	"strconv"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/hems/core/mqtt"
	"github.com/kilianp07/hems/core/model"
)

func newMQTTClient(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

// publisher writes the site state on the evcc topic layout.
type publisher struct {
	cli       paho.Client
	topics    coremqtt.Topics
	loadpoint int
}

func (p publisher) values(s State, vehicle string) map[string]string {
	return map[string]string{
		p.topics.Loadpoint(p.loadpoint, coremqtt.LeafMode):        string(s.Mode),
		p.topics.Loadpoint(p.loadpoint, coremqtt.LeafConnected):   strconv.FormatBool(s.Connected),
		p.topics.Loadpoint(p.loadpoint, coremqtt.LeafCharging):    strconv.FormatBool(s.Charging),
		p.topics.Loadpoint(p.loadpoint, coremqtt.LeafVehicleSoC):  strconv.FormatFloat(s.VehicleSoC, 'f', 1, 64),
		p.topics.Loadpoint(p.loadpoint, coremqtt.LeafVehicleName): vehicle,
		p.topics.BatterySoC(): strconv.FormatFloat(s.BatterySoC, 'f', 1, 64),
	}
}

func (p publisher) publish(s State, vehicle string) error {
	for topic, v := range p.values(s, vehicle) {
		tok := p.cli.Publish(topic, 1, true, v)
		if tok.Wait() && tok.Error() != nil {
			return fmt.Errorf("publish %s: %w", topic, tok.Error())
		}
	}
	return nil
}

// onModeSet applies mode commands like evcc does. Unknown modes are ignored.
func onModeSet(site *Site) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		m, ok := model.ParseChargeMode(string(msg.Payload()))
		if !ok {
			log.Printf("ignoring mode %q", msg.Payload())
			return
		}
		site.SetMode(m)
	}
}
