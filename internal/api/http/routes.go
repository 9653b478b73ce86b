package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, ctrl *dashboard.Controller) {
	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(newDashboardResponse(ctrl.Snapshot()))
	})

	v1.Post("/dashboard/retry", func(c *fiber.Ctx) error {
		err := ctrl.Retry(c.UserContext())
		if err := transitionError(err); err != nil {
			return err
		}
		return c.JSON(newDashboardResponse(ctrl.Snapshot()))
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid settings payload")
		}

		err := ctrl.SubmitSettings(c.UserContext(), req.toSettings())

		var verr *settings.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   true,
				"message": verr.Error(),
				"fields":  verr.Fields,
			})
		}
		if err := transitionError(err); err != nil {
			return err
		}
		return c.JSON(newDashboardResponse(ctrl.Snapshot()))
	})

	v1.Post("/settings/reconfigure", func(c *fiber.Ctx) error {
		if err := transitionError(ctrl.RequestReconfigure()); err != nil {
			return err
		}
		return c.JSON(newDashboardResponse(ctrl.Snapshot()))
	})
}

// transitionError maps controller errors to HTTP errors. Fetch failures are
// not HTTP errors: they are reported through the snapshot's error field.
func transitionError(err error) error {
	var fe *dashboard.FetchError
	switch {
	case err == nil, errors.As(err, &fe):
		return nil
	case errors.Is(err, dashboard.ErrBusy), errors.Is(err, dashboard.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update dashboard")
	}
}

// settingsRequest is the settings form body.
type settingsRequest struct {
	Location string `json:"location"`
	APIKey   string `json:"apiKey"`
}

func (r settingsRequest) toSettings() weather.Settings {
	return weather.Settings{
		Location: r.Location,
		APIKey:   r.APIKey,
	}
}

type dashboardResponse struct {
	State    dashboard.State       `json:"state"`
	Settings *weather.Settings     `json:"settings,omitempty"`
	Model    *weather.DisplayModel `json:"model,omitempty"`
	Chart    *chartView            `json:"chart,omitempty"`
	Error    *errorView            `json:"error,omitempty"`
}

// chartView carries the presentation hints derived from the model.
type chartView struct {
	Bounds     weather.Bounds `json:"bounds"`
	Background string         `json:"background,omitempty"`
	Colors     []string       `json:"colors"`
}

type errorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newDashboardResponse(snap dashboard.Snapshot) dashboardResponse {
	resp := dashboardResponse{
		State:    snap.State,
		Settings: snap.Settings,
		Model:    snap.Model,
	}

	if m := snap.Model; m != nil && len(m.Items) > 0 {
		colors := make([]string, len(m.Items))
		for i, item := range m.Items {
			colors[i] = item.Condition.Color()
		}
		resp.Chart = &chartView{
			Bounds:     m.Bounds(),
			Background: colors[0],
			Colors:     colors,
		}
	}

	if snap.Error != nil {
		resp.Error = &errorView{Kind: snap.Error.Kind, Message: snap.Error.Error()}
	}
	return resp
}
