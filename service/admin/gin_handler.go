// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/common/log/tag"
	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/persistence"
)

type ginHandler struct {
	cfg    config.Config
	store  persistence.TimerStore
	logger log.Logger
}

func newGinHandler(cfg config.Config, store persistence.TimerStore, logger log.Logger) *ginHandler {
	return &ginHandler{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

func (h *ginHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListTimers dumps all scheduled timers: the timeline members in deadline
// order plus the payload of each. An inspection endpoint for operators,
// e.g. to find timers left behind after HandlerNotFound.
func (h *ginHandler) ListTimers(c *gin.Context) {
	resp, err := h.store.GetAllTimers(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list timers", tag.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	payloads := make(map[string]string, len(resp.Payloads))
	for key, payload := range resp.Payloads {
		payloads[key] = string(payload)
	}
	c.JSON(http.StatusOK, gin.H{
		"timelineKeys": resp.TimelineKeys,
		"payloads":     payloads,
	})
}
