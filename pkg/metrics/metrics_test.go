package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingsDenied.WithLabelValues("SESSION_FULL"))
	IncBookingDenied("SESSION_FULL")
	IncBookingDenied("SESSION_FULL")
	assert.Equal(t, before+2, testutil.ToFloat64(bookingsDenied.WithLabelValues("SESSION_FULL")))

	created := testutil.ToFloat64(bookingsCreated)
	IncBookingCreated()
	assert.Equal(t, created+1, testutil.ToFloat64(bookingsCreated))

	sent := testutil.ToFloat64(notificationsSent.WithLabelValues("booking_created", "sent"))
	IncNotification("booking_created", "sent")
	assert.Equal(t, sent+1, testutil.ToFloat64(notificationsSent.WithLabelValues("booking_created", "sent")))
}
