package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kafka-relay/src/broker"
	"kafka-relay/src/contracts"
	"kafka-relay/src/logger"
	"kafka-relay/src/publish"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PutData(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishUnkeyed", mock.Anything).Return(nil).Once()
	r := NewRouter(NewService(pub, logger.NewSilentLogger()), logger.NewSilentLogger())

	w := post(r, "/putdata", `{"name":"a"}`)

	require.Equal(t, http.StatusOK, w.Code)
	prefix := "Data sent successfully with api_tran_id: "
	require.True(t, strings.HasPrefix(w.Body.String(), prefix), w.Body.String())

	_, err := uuid.Parse(strings.TrimPrefix(w.Body.String(), prefix))
	assert.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestRouter_PutDataWithKey(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishKeyed", "u1", mock.Anything).Return(nil).Once()
	r := NewRouter(NewService(pub, logger.NewSilentLogger()), logger.NewSilentLogger())

	w := post(r, "/putdata-with-key", `{"key":"u1","v":1}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Data sent successfully with key: u1 and api_tran_id: "), w.Body.String())
	pub.AssertExpectations(t)
}

func TestRouter_ClientErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"empty object", "/putdata", `{}`, "JSON data is required"},
		{"empty body", "/putdata", ``, "JSON data is required"},
		{"empty object keyed", "/putdata-with-key", `{}`, "JSON data is required"},
		{"missing key", "/putdata-with-key", `{"name":"a"}`, "Missing required 'key' field in JSON data"},
		{"null key", "/putdata-with-key", `{"key":null}`, "Missing required 'key' field in JSON data"},
		{"malformed", "/putdata", `{"name":`, "Invalid JSON format: "},
		{"array", "/putdata", `[1,2]`, "Invalid JSON format: "},
		{"null body", "/putdata-with-key", `null`, "Invalid JSON format: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(MockPublisher)
			r := NewRouter(NewService(pub, logger.NewSilentLogger()), logger.NewSilentLogger())

			w := post(r, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.True(t, strings.HasPrefix(w.Body.String(), tt.want), w.Body.String())
			assert.Empty(t, pub.Calls, "publisher must not be called")
		})
	}
}

func TestRouter_BrokerFailureIsServerError(t *testing.T) {
	brk := broker.NewInMemoryBroker(1, 10*time.Millisecond)
	brk.Close()

	p := publish.NewPublisher(brk, contracts.MirrorTopics(), logger.NewSilentLogger())
	r := NewRouter(NewService(p, logger.NewSilentLogger()), logger.NewSilentLogger())

	w := post(r, "/putdata", `{"name":"a"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Error processing data: "), w.Body.String())
	assert.Contains(t, w.Body.String(), broker.ErrClosed.Error())
}

func TestRouter_KeyedPayloadsShareAPartition(t *testing.T) {
	brk := broker.NewInMemoryBroker(4, 10*time.Millisecond)
	defer brk.Close()

	p := publish.NewPublisher(brk, contracts.MirrorTopics(), logger.NewSilentLogger())
	r := NewRouter(NewService(p, logger.NewSilentLogger()), logger.NewSilentLogger())

	for i := 0; i < 5; i++ {
		w := post(r, "/putdata-with-key", fmt.Sprintf(`{"key":"u1","seq":%d}`, i))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	partition := broker.HashPartition([]byte("u1"), 4)
	for _, topic := range contracts.MirrorTopics() {
		records := brk.Records(topic, partition)
		require.Len(t, records, 5, topic)
		for i, rec := range records {
			assert.Contains(t, string(rec.Value), fmt.Sprintf(`"seq":%d`, i))
			assert.Equal(t, "u1", string(rec.Key))
		}
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	r := NewRouter(NewService(new(MockPublisher), logger.NewSilentLogger()), logger.NewSilentLogger())
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An unexpected error occurred", w.Body.String())
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishUnkeyed", mock.Anything).Return(nil)
	r := NewRouter(NewService(pub, logger.NewSilentLogger()), logger.NewSilentLogger())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	// Publish through a real publisher so the produce counters have samples
	brk := broker.NewInMemoryBroker(1, 10*time.Millisecond)
	defer brk.Close()
	p := publish.NewPublisher(brk, contracts.MirrorTopics(), logger.NewSilentLogger())
	_, err := p.PublishUnkeyed(context.Background(), []byte(`{}`))
	require.NoError(t, err)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `custom_kafka_produce_total{topic="batch-topic"}`)
}
