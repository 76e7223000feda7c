package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/explorer"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
)

var errInvalidAction = errors.New("invalid explorer action")

// SessionView is an explorer session as returned to clients.
type SessionView struct {
	ID        string              `json:"id"`
	State     domain.FilterState  `json:"state"`
	Snapshot  domain.ListSnapshot `json:"snapshot"`
	Markers   []string            `json:"markers"`
	Scene     json.RawMessage     `json:"scene,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type priceBody struct {
	Min *int64 `json:"min"`
	Max *int64 `json:"max"`
}

type radiusBody struct {
	Meters float64 `json:"meters"`
}

type viewModeBody struct {
	Mode string `json:"mode"`
}

type styleBody struct {
	Style string `json:"style"`
}

type viewportBody struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func newSessionView(s *usecases.Session) SessionView {
	exp := s.Explorer
	v := SessionView{
		ID:        s.ID,
		State:     exp.State(),
		Snapshot:  exp.Snapshot(),
		Markers:   exp.Markers(),
		CreatedAt: s.Created,
	}
	if v.Markers == nil {
		v.Markers = []string{}
	}
	if m, ok := exp.Engine().(json.Marshaler); ok {
		if data, err := m.MarshalJSON(); err == nil {
			v.Scene = data
		}
	}
	return v
}

// CreateSessionHandler starts an explorer session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Explorers == nil {
			return errUnavailable(c, "explorer sessions not available")
		}

		s, err := deps.Explorers.Create(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/explorer/sessions/" + s.ID)
		return c.Status(fiber.StatusCreated).JSON(newSessionView(s))
	}
}

// GetSessionHandler returns the state of an explorer session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Explorers == nil {
			return errUnavailable(c, "explorer sessions not available")
		}

		s, err := deps.Explorers.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newSessionView(s))
	}
}

// DeleteSessionHandler closes an explorer session and destroys its map.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Explorers == nil {
			return errUnavailable(c, "explorer sessions not available")
		}

		if err := deps.Explorers.Delete(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SessionActionHandler applies one interaction to an explorer session and returns
// the resulting view. The action is the last path segment.
func SessionActionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Explorers == nil {
			return errUnavailable(c, "explorer sessions not available")
		}

		s, err := deps.Explorers.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		if err := applyAction(c.UserContext(), s.Explorer, c.Params("action"), c.Body()); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newSessionView(s))
	}
}

// applyAction decodes payload for action and applies it to exp. It is shared by
// the REST and WebSocket surfaces.
func applyAction(ctx context.Context, exp *explorer.Explorer, action string, payload []byte) error {
	switch action {
	case "price":
		var b priceBody
		if err := decodePayload(payload, &b); err != nil {
			return err
		}
		st := exp.State()
		minPrice, maxPrice := st.PriceMin, st.PriceMax
		if b.Min != nil {
			minPrice = *b.Min
		}
		if b.Max != nil {
			maxPrice = *b.Max
		}
		exp.SetPriceRange(minPrice, maxPrice)

	case "radius":
		var b radiusBody
		if err := decodePayload(payload, &b); err != nil {
			return err
		}
		if b.Meters <= 0 {
			return fmt.Errorf("%w: meters must be positive", errInvalidAction)
		}
		exp.SetSearchRadius(b.Meters)

	case "view-mode":
		var b viewModeBody
		if err := decodePayload(payload, &b); err != nil {
			return err
		}
		mode, err := domain.ParseViewMode(b.Mode)
		if err != nil {
			return err
		}
		exp.SetViewMode(mode)

	case "style":
		var b styleBody
		if err := decodePayload(payload, &b); err != nil {
			return err
		}
		style, err := domain.ParseMapStyle(b.Style)
		if err != nil {
			return err
		}
		return exp.SetMapStyle(style)

	case "click":
		var ev ports.ClickEvent
		if err := decodePayload(payload, &ev); err != nil {
			return err
		}
		exp.DispatchClick(ev)

	case "camera":
		var cam ports.Camera
		if err := decodePayload(payload, &cam); err != nil {
			return err
		}
		exp.MoveCamera(cam)

	case "viewport":
		var b viewportBody
		if err := decodePayload(payload, &b); err != nil {
			return err
		}
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("%w: viewport must be positive", errInvalidAction)
		}
		exp.Resize(b.Width, b.Height)

	case "clear-search":
		exp.ClearSearchCenter()

	case "style-loaded":
		exp.StyleLoaded()

	case "refresh":
		exp.Refresh(ctx)

	default:
		return fmt.Errorf("%w: unknown action %q", errInvalidAction, action)
	}
	return nil
}

func decodePayload(payload []byte, dst any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: body required", errInvalidAction)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidAction, err)
	}
	return nil
}
