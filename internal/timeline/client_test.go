package timeline

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayerbridge/internal/prayer"
)

func TestUpsertPinPutsById(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	var gotToken string
	httpmock.RegisterResponder(http.MethodPut,
		"https://pins.test/v1/user/pins/prayer-keeper-fajr-2024-03-15",
		func(req *http.Request) (*http.Response, error) {
			gotToken = req.Header.Get("X-User-Token")
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	store := NewHTTPPinStore(client, "https://pins.test/v1/user/pins", "tok-123")
	pin := NewPrayerPin(prayer.Fajr, time.Date(2024, 3, 15, 5, 12, 0, 0, time.UTC), 10, false)

	require.NoError(t, store.UpsertPin(context.Background(), pin))
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestDeletePinTreats404AsSuccess(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodDelete,
		"https://pins.test/v1/user/pins/prayer-keeper-asr-2024-03-15",
		httpmock.NewStringResponder(404, ""))

	store := NewHTTPPinStore(client, "https://pins.test/v1/user/pins", "tok-123")
	assert.NoError(t, store.DeletePin(context.Background(), "prayer-keeper-asr-2024-03-15"))
}

func TestUpsertPinClientErrorFails(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPut,
		"https://pins.test/v1/user/pins/prayer-keeper-isha-2024-03-15",
		httpmock.NewStringResponder(403, "bad token"))

	store := NewHTTPPinStore(client, "https://pins.test/v1/user/pins", "wrong")
	pin := NewPrayerPin(prayer.Isha, time.Date(2024, 3, 15, 19, 50, 0, 0, time.UTC), 0, false)

	assert.Error(t, store.UpsertPin(context.Background(), pin))
}
