//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/hems/core/model"
)

func startMosquitto(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// evcc stands in for the charger side: it publishes retained state and
// echoes mode commands back onto the mode topic.
func startFakeEVCC(t *testing.T, broker string) paho.Client {
	t.Helper()
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("fake-evcc"))
	tok := cli.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	t.Cleanup(func() { cli.Disconnect(100) })

	pub := func(topic, v string) {
		tok := cli.Publish(topic, 1, true, v)
		tok.Wait()
		require.NoError(t, tok.Error())
	}
	pub("evcc/loadpoints/1/mode", "pv")
	pub("evcc/loadpoints/1/vehicleName", "car")
	pub("evcc/loadpoints/1/vehicleSoc", "35")
	pub("evcc/loadpoints/1/connected", "true")
	pub("evcc/site/batterySoc", "62")

	tok = cli.Subscribe("evcc/loadpoints/1/mode/set", 1, func(c paho.Client, m paho.Message) {
		c.Publish("evcc/loadpoints/1/mode", 1, true, m.Payload())
	})
	tok.Wait()
	require.NoError(t, tok.Error())
	return cli
}

func TestClient_Mosquitto(t *testing.T) {
	broker := startMosquitto(t)
	startFakeEVCC(t, broker)

	c, err := NewClient(Config{Broker: broker, ClientID: "hems-it", QoS: map[string]byte{"telemetry": 1, "command": 1}})
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Disconnect()
	ctx := context.Background()

	require.Eventually(t, func() bool {
		soc, err := c.BatterySoC(ctx)
		return err == nil && soc == 62
	}, 5*time.Second, 50*time.Millisecond)

	vs, err := c.Vehicles(ctx, []string{"car"})
	require.NoError(t, err)
	assert.True(t, vs[0].Connected)
	assert.Equal(t, 35.0, vs[0].SoC)

	require.NoError(t, c.SetMode(ctx, model.ModeNow))
	require.Eventually(t, func() bool {
		m, err := c.Mode(ctx)
		return err == nil && m == model.ModeNow
	}, 5*time.Second, 50*time.Millisecond)
}
