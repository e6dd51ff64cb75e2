package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("patient_id", "pat-001"))
	assert.NoError(t, ValidateIdentifier("user_id", "auth0:abc.def@x"))
	assert.Error(t, ValidateIdentifier("patient_id", ""))
	assert.Error(t, ValidateIdentifier("patient_id", "-leading-dash"))
	assert.Error(t, ValidateIdentifier("patient_id", "has space"))
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("description", "headache", 10))
	assert.Error(t, ValidateText("description", "   ", 10))
	assert.Error(t, ValidateText("description", "ñññññññññññ", 10))
	assert.NoError(t, ValidateMaxLength("dosage", "", 10))
}

func TestValidateDateRange(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)
	after := start.AddDate(0, 0, 1)

	assert.NoError(t, ValidateDateRange(start, nil))
	assert.NoError(t, ValidateDateRange(start, &start))
	assert.NoError(t, ValidateDateRange(start, &after))
	assert.Error(t, ValidateDateRange(start, &before))
	assert.Error(t, ValidateDateRange(time.Time{}, nil))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "line one\nline two", SanitizeString("  line one\x00\nline two\x07 "))
	assert.Equal(t, "tab\there", SanitizeString("tab\there"))
}
