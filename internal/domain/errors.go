package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type TemplateNotFoundError struct {
	ID uuid.UUID
}

func (e TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.ID)
}

func IsTemplateNotFound(err error) bool {
	var target TemplateNotFoundError
	return errors.As(err, &target)
}

type VersionNotFoundError struct {
	TemplateID uuid.UUID
	VersionID  uuid.UUID
}

func (e VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %s not found for template %s", e.VersionID, e.TemplateID)
}

func IsVersionNotFound(err error) bool {
	var target VersionNotFoundError
	return errors.As(err, &target)
}

// NoVersionsError is returned when a template's version list is empty.
// Templates are created together with their first version, so this only
// occurs for snapshots produced elsewhere.
type NoVersionsError struct {
	TemplateID uuid.UUID
}

func (e NoVersionsError) Error() string {
	return fmt.Sprintf("no versions found for template: %s", e.TemplateID)
}

func IsNoVersions(err error) bool {
	var target NoVersionsError
	return errors.As(err, &target)
}

type NoActiveExperimentError struct {
	TemplateID uuid.UUID
}

func (e NoActiveExperimentError) Error() string {
	return fmt.Sprintf("no active experiment for template: %s", e.TemplateID)
}

func IsNoActiveExperiment(err error) bool {
	var target NoActiveExperimentError
	return errors.As(err, &target)
}

type InvalidWeightsError struct {
	Reason string
}

func (e InvalidWeightsError) Error() string {
	return fmt.Sprintf("invalid experiment weights: %s", e.Reason)
}

func IsInvalidWeights(err error) bool {
	var target InvalidWeightsError
	return errors.As(err, &target)
}

type MissingVariablesError struct {
	Names []string
}

func (e MissingVariablesError) Error() string {
	return fmt.Sprintf("missing template variables: %s", strings.Join(e.Names, ", "))
}

func IsMissingVariables(err error) bool {
	var target MissingVariablesError
	return errors.As(err, &target)
}
