package testutil

import (
	"time"

	"github.com/google/uuid"
)

// TestCustomerID is a fixed customer for deterministic tests.
var TestCustomerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
