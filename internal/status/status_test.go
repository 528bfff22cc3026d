package status

import (
	"testing"

	"github.com/eraiiz/shipping/internal/models"
	"github.com/stretchr/testify/require"
)

func TestProgressPercent_Table(t *testing.T) {
	want := map[string]int{
		models.StatusPending:        10,
		models.StatusConfirmed:      20,
		models.StatusPickedUp:       40,
		models.StatusInTransit:      60,
		models.StatusOutForDelivery: 80,
		models.StatusDelivered:      100,
		models.StatusFailedDelivery: 70,
		models.StatusReturned:       50,
		models.StatusCancelled:      0,
		models.StatusException:      50,
	}
	for st, p := range want {
		require.Equal(t, p, ProgressPercent(st), "status %s", st)
	}
}

func TestProgressPercent_NonMonotonicByDesign(t *testing.T) {
	// failed_delivery sits above in_transit on purpose; a "fix" that makes the
	// scale monotonic is a regression.
	require.Greater(t, ProgressPercent(models.StatusFailedDelivery), ProgressPercent(models.StatusInTransit))
}

func TestProgressPercent_Idempotent(t *testing.T) {
	require.Equal(t, ProgressPercent(models.StatusFailedDelivery), ProgressPercent(models.StatusFailedDelivery))
	require.Equal(t, 70, ProgressPercent(models.StatusFailedDelivery))
}

func TestUnknownStatus_Fallbacks(t *testing.T) {
	require.Equal(t, 0, ProgressPercent("teleported"))
	require.Equal(t, "teleported", Label("teleported"))
	require.Equal(t, "bg-gray-100 text-gray-800", ColorClass("teleported"))
}

func TestLabels(t *testing.T) {
	require.Equal(t, "Out for Delivery", Label(models.StatusOutForDelivery))
	require.Equal(t, "Picked Up", Label(models.StatusPickedUp))
	require.Equal(t, "Failed Delivery", Label(models.StatusFailedDelivery))
}

func TestIsActive(t *testing.T) {
	require.True(t, IsActive(models.StatusConfirmed))
	require.True(t, IsActive(models.StatusPickedUp))
	require.True(t, IsActive(models.StatusInTransit))
	require.True(t, IsActive(models.StatusOutForDelivery))

	require.False(t, IsActive(models.StatusPending))
	require.False(t, IsActive(models.StatusDelivered))
	require.False(t, IsActive(models.StatusCancelled))
	require.False(t, IsActive(models.StatusFailedDelivery))
	require.False(t, IsActive(""))
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(models.StatusDelivered))
	require.True(t, IsTerminal(models.StatusCancelled))
	require.True(t, IsTerminal(models.StatusReturned))
	require.False(t, IsTerminal(models.StatusInTransit))
	require.False(t, IsTerminal(models.StatusException))
}
