package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/matthieu-boussard/craft-ai-client-python/clock"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("timezone", validateTimezone)
	_ = validate.RegisterValidation("decisionpath", validateDecisionPath)
}

func validateTimezone(fl validator.FieldLevel) bool {
	_, err := clock.ParseOffset(fl.Field().String())
	return err == nil
}

func validateDecisionPath(fl validator.FieldLevel) bool {
	return decisionPathRegexp.MatchString(fl.Field().String())
}

// validateFlags validates a command configuration, exiting with code 1.
func validateFlags(config interface{}) error {
	if err := validate.Struct(config); err != nil {
		return exit(1, fmt.Errorf("invalid flags: %v", err))
	}
	return nil
}
