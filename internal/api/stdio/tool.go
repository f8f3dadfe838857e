package stdioapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// WeatherToolName is the tool name clients invoke.
const WeatherToolName = "get-weather"

// WeatherReporter renders the tool text for a city, success or failure.
type WeatherReporter interface {
	Report(ctx context.Context, city string) string
}

// WeatherParams are the get-weather tool parameters.
type WeatherParams struct {
	City string `json:"city" validate:"required,notblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// WeatherTool adapts a reporter to a Handler. Lookup failures are reported as
// result text; only unusable params produce an error response.
func WeatherTool(r WeatherReporter) Handler {
	return func(ctx context.Context, raw json.RawMessage) (ToolResult, error) {
		var p WeatherParams
		if len(raw) == 0 {
			return ToolResult{}, &InvalidParamsError{Err: errors.New("params are required")}
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return ToolResult{}, &InvalidParamsError{Err: err}
		}
		if err := validate.Struct(p); err != nil {
			return ToolResult{}, &InvalidParamsError{Err: err}
		}
		return TextResult(r.Report(ctx, p.City)), nil
	}
}
