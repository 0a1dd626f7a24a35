package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MeKo-Tech/facetgrid/internal/composite"
	"github.com/MeKo-Tech/facetgrid/internal/raster"
	"github.com/MeKo-Tech/facetgrid/internal/tile"
)

// Options is the configuration surface of a grid render.
type Options struct {
	Resolution    int     `yaml:"resolution" json:"resolution" mapstructure:"resolution" validate:"gte=16,lte=16384"`
	LineThickness float64 `yaml:"line_thickness" json:"line_thickness" mapstructure:"line_thickness" validate:"gt=0"`
	ZoomBudget    int     `yaml:"zoom_budget" json:"zoom_budget" mapstructure:"zoom_budget" validate:"gt=0"`
	GridLines     bool    `yaml:"grid" json:"grid" mapstructure:"grid"`

	Background string `yaml:"background" json:"background" mapstructure:"background" validate:"required,color"`
	Foreground string `yaml:"foreground" json:"foreground" mapstructure:"foreground" validate:"required,color"`
	GridColor  string `yaml:"grid_color" json:"grid_color" mapstructure:"grid_color" validate:"required,color"`

	Title   string `yaml:"title" json:"title" mapstructure:"title"`
	Caption bool   `yaml:"caption" json:"caption" mapstructure:"caption"`

	// NoCenter draws every track at the top-left corner of its cell.
	NoCenter bool `yaml:"no_center" json:"no_center" mapstructure:"no_center"`
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		Resolution:    composite.DefaultResolution,
		LineThickness: 2,
		ZoomBudget:    tile.DefaultBudget,
		Background:    "#000000",
		Foreground:    "#ffffff",
		GridColor:     "#808080",
	}
}

// ErrInvalidOptions is returned when options fail validation or cannot be
// turned into a style.
var ErrInvalidOptions = errors.New("invalid options")

var validate = newValidator()

// newValidator registers the "color" tag, which accepts exactly what
// raster.ParseColor can decode.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		_, err := raster.ParseColor(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("failed to register color validation: %v", err))
	}
	return v
}

// Validate checks the options and reports every invalid field.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate options: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(msgs, "; "))
}

// Style converts validated options into the compositor style.
func (o Options) Style() (composite.Style, error) {
	bg, err := raster.ParseColor(o.Background)
	if err != nil {
		return composite.Style{}, fmt.Errorf("%w: background: %v", ErrInvalidOptions, err)
	}
	fg, err := raster.ParseColor(o.Foreground)
	if err != nil {
		return composite.Style{}, fmt.Errorf("%w: foreground: %v", ErrInvalidOptions, err)
	}
	gc, err := raster.ParseColor(o.GridColor)
	if err != nil {
		return composite.Style{}, fmt.Errorf("%w: grid color: %v", ErrInvalidOptions, err)
	}

	return composite.Style{
		Resolution:    o.Resolution,
		LineThickness: o.LineThickness,
		GridLines:     o.GridLines,
		Background:    bg,
		Foreground:    fg,
		GridColor:     gc,
		Title:         o.Title,
		Caption:       o.Caption,
		Centered:      !o.NoCenter,
	}, nil
}
