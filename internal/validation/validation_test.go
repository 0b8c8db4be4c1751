/*-------------------------------------------------------------------------
 *
 * validation_test.go
 *    Input validation tests
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/validation/validation_test.go
 *
 *-------------------------------------------------------------------------
 */

package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

/* TestValidateRequired tests the required-field check */
func TestValidateRequired(t *testing.T) {
	if err := ValidateRequired("value", "field"); err != nil {
		t.Fatalf("non-empty value rejected: %v", err)
	}
	if err := ValidateRequired("", "field"); err == nil {
		t.Fatal("expected rejection of empty value")
	}
	if err := ValidateRequired("   ", "field"); err == nil {
		t.Fatal("expected rejection of whitespace-only value")
	}
}

/* TestValidateMaxLength tests the length bound */
func TestValidateMaxLength(t *testing.T) {
	if err := ValidateMaxLength("short", "field", 10); err != nil {
		t.Fatalf("within-bound value rejected: %v", err)
	}
	if err := ValidateMaxLength(strings.Repeat("x", 11), "field", 10); err == nil {
		t.Fatal("expected rejection above bound")
	}
}

/* TestValidateIntRange tests range boundaries */
func TestValidateIntRange(t *testing.T) {
	cases := []struct {
		value int
		valid bool
	}{
		{1, true},
		{65535, true},
		{0, false},
		{65536, false},
	}
	for _, tc := range cases {
		err := ValidateIntRange(tc.value, 1, 65535, "port")
		if tc.valid && err != nil {
			t.Fatalf("value %d rejected: %v", tc.value, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("value %d accepted", tc.value)
		}
	}
}

/* TestValidateUUID tests UUID format checks */
func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID(uuid.New().String()); err != nil {
		t.Fatalf("generated uuid rejected: %v", err)
	}
	if err := ValidateUUID(strings.ToUpper(uuid.New().String())); err != nil {
		t.Fatalf("uppercase uuid rejected: %v", err)
	}

	for _, bad := range []string{"", "not-a-uuid", "12345678-1234-1234-1234", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
		if err := ValidateUUID(bad); err == nil {
			t.Fatalf("expected rejection of %q", bad)
		}
	}
}

/* TestParseUUID tests round-trip parsing */
func TestParseUUID(t *testing.T) {
	want := uuid.New()
	got, err := ParseUUID(want.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	if _, err := ParseUUID("not-a-uuid"); err == nil {
		t.Fatal("expected parse failure")
	}
}
