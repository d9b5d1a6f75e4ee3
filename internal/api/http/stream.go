package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/climate-quest/internal/game"
	"github.com/i474232898/climate-quest/internal/ledger"
)

// keepAlive is the interval of SSE comment pings; a failed ping ends the
// stream once the client is gone.
const keepAlive = 15 * time.Second

func sseHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

// writeEvent writes one SSE frame and flushes it.
func writeEvent(w *bufio.Writer, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return w.Flush()
}

func ping(w *bufio.Writer) error {
	if _, err := w.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

// streamGame sends the current game view, then every game event until the
// game closes or the client disconnects.
func streamGame(c *fiber.Ctx, g *game.Game) {
	sseHeaders(c)
	events, cancel := g.Subscribe()
	initial := g.View()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if err := writeEvent(w, "state", initial); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(w, string(ev.Type), ev); err != nil {
					return
				}
			case <-ticker.C:
				if err := ping(w); err != nil {
					return
				}
			}
		}
	}))
}

// streamLedger sends the running total after every change.
func streamLedger(c *fiber.Ctx, l *ledger.Ledger) {
	sseHeaders(c)
	totals, cancel := l.Subscribe()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case points, ok := <-totals:
				if !ok {
					return
				}
				if err := writeEvent(w, "score", fiber.Map{"points": points, "rank": ledger.RankFor(points)}); err != nil {
					return
				}
			case <-ticker.C:
				if err := ping(w); err != nil {
					return
				}
			}
		}
	}))
}
