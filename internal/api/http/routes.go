package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/climate-quest/internal/climate"
	"github.com/i474232898/climate-quest/internal/game"
	"github.com/i474232898/climate-quest/internal/gesture"
	"github.com/i474232898/climate-quest/internal/ledger"
	"github.com/i474232898/climate-quest/internal/session"
	"github.com/i474232898/climate-quest/internal/store"
)

var validate = validator.New()

// Deps are the services the routes read and drive.
type Deps struct {
	Games    *game.Registry
	Ledger   *ledger.Ledger
	Store    *store.MemoryStore
	Gatherer prometheus.Gatherer // optional; enables /metrics
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")

	v1.Post("/games", func(c *fiber.Ctx) error {
		g := deps.Games.Create()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": g.ID()})
	})

	v1.Get("/games/:id", func(c *fiber.Ctx) error {
		g, err := lookupGame(c, deps.Games)
		if err != nil {
			return err
		}
		return c.JSON(g.View())
	})

	v1.Post("/games/:id/pointer", func(c *fiber.Ctx) error {
		g, err := lookupGame(c, deps.Games)
		if err != nil {
			return err
		}
		var req pointerRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		ev, err := req.toEvent()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res := g.HandlePointer(ev)
		return c.JSON(fiber.Map{
			"selected":       res.Selected,
			"suppressScroll": res.SuppressScroll,
		})
	})

	v1.Post("/games/:id/select", func(c *fiber.Ctx) error {
		g, err := lookupGame(c, deps.Games)
		if err != nil {
			return err
		}
		var req selectRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		loc := climate.Location{Lat: *req.Lat, Lon: *req.Lng}
		seq := g.SelectLocation(loc)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"seq": seq, "location": loc})
	})

	v1.Post("/games/:id/answer", func(c *fiber.Ctx) error {
		g, err := lookupGame(c, deps.Games)
		if err != nil {
			return err
		}
		var req answerRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		fb, err := g.SubmitAnswer(c.UserContext(), req.AnswerID)
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(fb)
	})

	v1.Post("/games/:id/skip", func(c *fiber.Ctx) error {
		g, err := lookupGame(c, deps.Games)
		if err != nil {
			return err
		}
		v, err := g.Skip()
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(v)
	})

	v1.Post("/games/:id/reset", func(c *fiber.Ctx) error {
		g, err := lookupGame(c, deps.Games)
		if err != nil {
			return err
		}
		return c.JSON(g.Reset())
	})

	v1.Get("/games/:id/events", func(c *fiber.Ctx) error {
		g, err := lookupGame(c, deps.Games)
		if err != nil {
			return err
		}
		streamGame(c, g)
		return nil
	})

	v1.Get("/ledger", func(c *fiber.Ctx) error {
		points := deps.Ledger.Read()
		return c.JSON(fiber.Map{"points": points, "rank": ledger.RankFor(points)})
	})

	v1.Get("/ledger/stream", func(c *fiber.Ctx) error {
		streamLedger(c, deps.Ledger)
		return nil
	})

	v1.Get("/heatmap", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"points": deps.Store.HeatPoints()})
	})

	v1.Get("/snapshots/latest", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snap, err := deps.Store.Latest(loc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no climate data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read climate data")
		}
		return c.JSON(snap)
	})
}

func lookupGame(c *fiber.Ctx, games *game.Registry) (*game.Game, error) {
	g, err := games.Get(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return g, nil
}

func bindBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidAnswer):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrFeedbackOpen), errors.Is(err, session.ErrNotActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to record answer")
	}
}

// pointerRequest is one raw pointer event forwarded by the map client.
type pointerRequest struct {
	Kind        string   `json:"kind" validate:"required,oneof=down move up cancel"`
	Source      string   `json:"source" validate:"required,oneof=mouse touch"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Contacts    int      `json:"contacts" validate:"gte=0"`
	TimestampMs int64    `json:"timestampMs" validate:"gte=0"`
	Lat         *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
}

func (p pointerRequest) toEvent() (gesture.Event, error) {
	ev := gesture.Event{
		Kind:     gesture.Kind(p.Kind),
		Source:   gesture.Source(p.Source),
		X:        p.X,
		Y:        p.Y,
		Contacts: p.Contacts,
		At:       time.UnixMilli(p.TimestampMs),
	}
	if ev.Kind == gesture.KindUp {
		if p.Lat == nil || p.Lng == nil {
			return ev, errors.New("lat and lng are required for up events")
		}
		ev.Location = gesture.LatLng{Lat: *p.Lat, Lng: *p.Lng}
	}
	return ev, nil
}

type selectRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type answerRequest struct {
	AnswerID int `json:"answerId" validate:"required,gte=1"`
}

func parseLocationQuery(c *fiber.Ctx) (climate.Location, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return climate.Location{}, errors.New("lat query parameter must be a number")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return climate.Location{}, errors.New("lon query parameter must be a number")
	}
	loc := climate.Location{Lat: lat, Lon: lon}
	if err := validate.Struct(loc); err != nil {
		return loc, err
	}
	return loc, nil
}
