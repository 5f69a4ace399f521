package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kafka-relay/src/logger"
	"kafka-relay/src/metrics"
)

// NewRouter wires the ingestion endpoints, /metrics and /healthz.
func NewRouter(svc *Service, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(log), recovery(log))

	h := &handlers{svc: svc}
	r.POST("/putdata", h.putData)
	r.POST("/putdata-with-key", h.putDataWithKey)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}

type handlers struct {
	svc *Service
}

func (h *handlers) putData(c *gin.Context) {
	payload, ok := h.decode(c)
	if !ok {
		return
	}

	receipt, err := h.svc.Ingest(c.Request.Context(), payload)
	if err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, "Data sent successfully with api_tran_id: %s", receipt.TranID)
}

func (h *handlers) putDataWithKey(c *gin.Context) {
	payload, ok := h.decode(c)
	if !ok {
		return
	}

	receipt, err := h.svc.IngestWithKey(c.Request.Context(), payload)
	if err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, "Data sent successfully with key: %s and api_tran_id: %s", receipt.Key, receipt.TranID)
}

func (h *handlers) decode(c *gin.Context) (map[string]interface{}, bool) {
	data, err := c.GetRawData()
	if err != nil {
		fail(c, &InvalidJSONError{Err: err})
		return nil, false
	}

	payload, err := h.svc.DecodePayload(data)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return payload, true
}

func fail(c *gin.Context, err error) {
	status, msg := StatusFor(err)
	c.String(status, "%s", msg)
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("[Gateway] %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("[Gateway] Panic serving %s: %s", c.Request.URL.Path, fmt.Sprint(recovered))
		c.String(http.StatusInternalServerError, "An unexpected error occurred")
		c.Abort()
	})
}
