package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"books-api/internal/app"
	"books-api/internal/transport/http/response"
)

type StreamHandler struct {
	streamService *app.StreamService
	log           logrus.FieldLogger
}

func NewStreamHandler(streamService *app.StreamService, log logrus.FieldLogger) *StreamHandler {
	return &StreamHandler{streamService: streamService, log: log}
}

// Updates pushes "update" events until the stream budget is spent or the
// client goes away.
func (h *StreamHandler) Updates(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	err := h.streamService.Run(c.Request.Context(), func(event app.UpdateEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "event: update\ndata: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		requestLog(c, h.log).WithError(err).Debug("update stream closed by write failure")
	}
}
