package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/prayer-widget/internal/driver"
	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

// doneToken is an already completed mqtt.Token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: b})
	return doneToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func (c *fakeClient) sent() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message(nil), c.messages...)
}

func sampleUpdate() driver.Update {
	return driver.Update{
		HasReading: true,
		Reading: window.Reading{
			ActiveIndex:    window.Dhuhr,
			Prayer:         "Dhuhr",
			Next:           "Asr",
			FillPercentage: 100 * 93.0 / 174.0,
			Remaining:      window.Remaining{Hours: 1, Minutes: 21},
			End:            time.Date(2026, 3, 14, 15, 21, 0, 0, time.UTC),
		},
	}
}

func TestPayloadFor(t *testing.T) {
	p := PayloadFor(sampleUpdate())
	assert.Equal(t, "Dhuhr", p.Prayer)
	assert.Equal(t, "Asr", p.Next)
	assert.Equal(t, 53, p.Percent)
	assert.Equal(t, 81, p.Remaining)
	assert.Equal(t, "Next prayer in 1h 21m", p.Label)
	assert.False(t, p.Stale)

	u := sampleUpdate()
	u.Err = window.ErrMalformedBoundaries
	p = PayloadFor(u)
	assert.True(t, p.Stale)
	assert.Equal(t, "malformed boundary data", p.Error)

	p = PayloadFor(driver.Update{Err: errors.New("no data")})
	assert.False(t, p.Stale)
	assert.Empty(t, p.Prayer)
}

func TestObserve_PublishesRetainedAndDedupes(t *testing.T) {
	c := &fakeClient{}
	p := New(c, "home/prayer", zerolog.Nop())

	p.Observe(sampleUpdate())
	p.Observe(sampleUpdate())

	msgs := c.sent()
	require.Len(t, msgs, 1, "identical readings publish once")
	assert.Equal(t, "home/prayer", msgs[0].topic)
	assert.True(t, msgs[0].retained)

	var got Payload
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, PayloadFor(sampleUpdate()), got)

	next := sampleUpdate()
	next.Reading.Remaining.Minutes = 20
	p.Observe(next)
	assert.Len(t, c.sent(), 2)
}

func TestObserve_PublishErrorIsNotFatal(t *testing.T) {
	c := &fakeClient{err: errors.New("not connected")}
	p := New(c, "home/prayer", zerolog.Nop())

	assert.NotPanics(t, func() { p.Observe(sampleUpdate()) })
	assert.Len(t, c.sent(), 1)
}

func TestClose(t *testing.T) {
	c := &fakeClient{}
	p := New(c, "home/prayer", zerolog.Nop())

	require.NoError(t, p.Close())
	msgs := c.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "home/prayer/status", msgs[0].topic)
	assert.Equal(t, "offline", string(msgs[0].payload))
	assert.True(t, c.disconnected)
}

func TestConnect_Validation(t *testing.T) {
	_, err := Connect("", "t", zerolog.Nop())
	assert.Error(t, err)
	_, err = Connect("tcp://localhost:1883", "", zerolog.Nop())
	assert.Error(t, err)
}

func TestObserve_RetriesAfterFailedPublish(t *testing.T) {
	c := &fakeClient{err: errors.New("not connected")}
	p := New(c, "home/prayer", zerolog.Nop())

	p.Observe(sampleUpdate())
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.last == nil
	}, time.Second, 5*time.Millisecond, "a failed publish must not count as delivered")

	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()

	p.Observe(sampleUpdate())
	assert.Len(t, c.sent(), 2, "the same reading is sent again after a failure")

	p.Observe(sampleUpdate())
	assert.Len(t, c.sent(), 2, "and deduplicated once delivered")
}
