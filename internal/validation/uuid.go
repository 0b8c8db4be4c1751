/*-------------------------------------------------------------------------
 *
 * uuid.go
 *    UUID validation for NeuronSupervisor
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/validation/uuid.go
 *
 *-------------------------------------------------------------------------
 */

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

/* ValidateUUID validates a UUID string format */
func ValidateUUID(s string) error {
	if s == "" {
		return fmt.Errorf("UUID cannot be empty")
	}

	s = strings.ToLower(strings.TrimSpace(s))
	if !uuidRegex.MatchString(s) {
		return fmt.Errorf("invalid UUID format: %s", s)
	}

	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid UUID: %w", err)
	}

	return nil
}

/* ParseUUID parses a UUID string and returns an error if invalid */
func ParseUUID(s string) (uuid.UUID, error) {
	if err := ValidateUUID(s); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(strings.ToLower(strings.TrimSpace(s)))
}
