package main

import (
	"io"
	"sync"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/closing_backend/models"
)

// statusBroker fans workflow status transitions out to SSE subscribers.
type statusBroker struct {
	mu   sync.Mutex
	subs map[string][]chan models.StatusRef // assetId -> subscribers
}

func newStatusBroker() *statusBroker {
	return &statusBroker{subs: map[string][]chan models.StatusRef{}}
}

func (b *statusBroker) publish(assetId string, ref models.StatusRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[assetId] {
		select {
		case ch <- ref:
		default:
		}
	}
}

func (b *statusBroker) subscribe(assetId string) (<-chan models.StatusRef, func()) {
	ch := make(chan models.StatusRef, 8)
	b.mu.Lock()
	b.subs[assetId] = append(b.subs[assetId], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[assetId]
		for i, c := range chans {
			if c == ch {
				b.subs[assetId] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (a *app) streamStatus(c *gin.Context) {
	assetId := c.Param("id")
	ref, err := a.store.StatusRef(assetId)
	if err != nil {
		respondError(c, err)
		return
	}
	ch, cancel := a.status.subscribe(assetId)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.SSEvent("status", ref)
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case ref, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("status", ref)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// streamCheck replays the check's accumulated buffer, then follows the
// live stream until it completes or the client goes away.
func (a *app) streamCheck(c *gin.Context) {
	assetId, checkId := c.Param("id"), c.Param("checkId")

	var snapshot string
	err := a.store.WithEntry(assetId, func() error {
		check, err := a.store.Check(assetId, checkId)
		if err != nil {
			return err
		}
		snapshot = check.AiResult
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	ch, cancel := a.checks.Subscribe(checkId)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	if snapshot != "" {
		c.SSEvent("update", snapshot)
		c.Writer.Flush()
	}
	if a.checks.StreamingCheckId(assetId) != checkId {
		// nothing streaming: the snapshot was the whole story
		c.SSEvent("done", "")
		return
	}
	c.Stream(func(w io.Writer) bool {
		select {
		case buf, ok := <-ch:
			if !ok {
				c.SSEvent("done", "")
				return false
			}
			c.SSEvent("update", buf)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (a *app) streamFindings(c *gin.Context) {
	assetId := c.Param("id")

	var snapshot string
	err := a.store.WithEntry(assetId, func() error {
		f, err := a.store.Findings(assetId)
		if err != nil {
			return err
		}
		snapshot = f.Content
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	ch, cancel := a.findings.Subscribe(assetId)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	if snapshot != "" {
		c.SSEvent("update", snapshot)
		c.Writer.Flush()
	}
	if !a.findings.Generating(assetId) {
		c.SSEvent("done", "")
		return
	}
	c.Stream(func(w io.Writer) bool {
		select {
		case buf, ok := <-ch:
			if !ok {
				c.SSEvent("done", "")
				return false
			}
			c.SSEvent("update", buf)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
