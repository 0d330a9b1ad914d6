package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/mklimuk/vdec/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func TestFormatPayload(t *testing.T) {
	data, err := FormatPayload("tp2854b", detect.Event{Channel: 2, Status: detect.StatusPresent, Time: eventTime})
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(data, &p))
	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, "tp2854b", p.Device)
	assert.Equal(t, 2, p.Channel)
	assert.Equal(t, "present", p.Status)
	assert.Equal(t, "SENSOR_RAVAL=0x1", p.RAVal)
	assert.Equal(t, "2024-03-01T12:30:00Z", p.Timestamp)
}

type doneToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                       { <-t.done; return true }
func (t *doneToken) WaitTimeout(d time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}            { return t.done }
func (t *doneToken) Error() error                     { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	paho.Client
	mx           sync.Mutex
	published    []published
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	return newToken(c.err)
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestMQTTSink_Publish(t *testing.T) {
	client := &fakeClient{}
	sink := NewMQTTSink(client, "tp9950", WithRetained())
	assert.Equal(t, "vdec/tp9950/detect", sink.Topic())

	require.NoError(t, sink.Notify(context.Background(), detect.Event{Channel: 0, Status: detect.StatusAbsent, Time: eventTime}))
	require.Len(t, client.published, 1)
	msg := client.published[0]
	assert.Equal(t, "vdec/tp9950/detect", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)
	assert.Contains(t, string(msg.payload), `"raval":"SENSOR_RAVAL=0x0"`)

	require.NoError(t, sink.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTSink_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	sink := NewMQTTSink(client, "tp9950", WithTopic("cameras"), WithQoS(0))
	err := sink.Notify(context.Background(), detect.Event{Time: eventTime})
	assert.ErrorContains(t, err, "not connected")
	assert.Equal(t, "cameras", client.published[0].topic)
}

func TestMulti(t *testing.T) {
	failing := &FakeSink{Err: errors.New("down")}
	ok := &FakeSink{}
	m := Multi{failing, LogSink{Device: "tp9950"}, ok}

	err := m.Notify(context.Background(), detect.Event{Channel: 1, Status: detect.StatusPresent, Time: eventTime})
	assert.ErrorIs(t, err, failing.Err)
	assert.Len(t, failing.Received(), 1)
	assert.Len(t, ok.Received(), 1, "a failing sink must not stop delivery")
}
