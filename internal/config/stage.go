//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package config

import (
	"strings"

	"github.com/pkg/errors"
)

// AppStage is the deployment stage of OrcaBus. Each stage maps to its own account.
type AppStage string

const (
	Beta  AppStage = "beta"
	Gamma AppStage = "gamma"
	Prod  AppStage = "prod"
)

// ErrUnknownStage is returned for a stage name outside of beta, gamma and prod.
var ErrUnknownStage = errors.New("unknown stage")

// Stages returns every stage in promotion order.
func Stages() []AppStage {
	return []AppStage{Beta, Gamma, Prod}
}

// ParseStage decodes stage name, case insensitive.
func ParseStage(s string) (AppStage, error) {
	switch stage := AppStage(strings.ToLower(strings.TrimSpace(s))); stage {
	case Beta, Gamma, Prod:
		return stage, nil
	default:
		return "", errors.Wrapf(ErrUnknownStage, "%q", s)
	}
}

func (s AppStage) String() string { return string(s) }

// Title is the stage name as used by pipeline stage identifiers (OrcaBusBeta, ...)
func (s AppStage) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}
