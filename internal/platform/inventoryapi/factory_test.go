package inventoryapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/invsync/invsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFactory_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty url", Config{}},
		{"no scheme", Config{BaseURL: "inventory.local"}},
		{"bad scheme", Config{BaseURL: "ftp://inventory.local"}},
		{"no host", Config{BaseURL: "http://"}},
		{"unparseable", Config{BaseURL: "http://[::1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClientFactory(tc.cfg, testLogger())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewClientFactory(Config{BaseURL: "http://inventory.local"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClientFactory_ForOrg(t *testing.T) {
	t.Parallel()

	factory, err := NewClientFactory(Config{BaseURL: "https://inventory.local/"}, testLogger())
	require.NoError(t, err)

	client, err := factory.ForOrg("my-org")
	require.NoError(t, err)
	assert.Equal(t, "my-org", client.OrgID())
	assert.Equal(t, "https://inventory.local", client.baseURL)

	other, err := factory.ForOrg("other-org")
	require.NoError(t, err)
	assert.NotSame(t, client, other)
	assert.Same(t, client.limiter, other.limiter, "clients share the factory limiter")
	assert.Same(t, client.httpClient, other.httpClient)

	_, err = factory.ForOrg("")
	assert.ErrorIs(t, err, domain.ErrEmptyOrgID)

	_, err = factory.ForOrg("bad org")
	assert.ErrorIs(t, err, domain.ErrInvalidOrgID)
}

func TestClientFactory_WithHTTPClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{Timeout: time.Second}
	factory, err := NewClientFactory(Config{BaseURL: "http://inventory.local"}, testLogger(), WithHTTPClient(custom))
	require.NoError(t, err)

	client, err := factory.ForOrg("org")
	require.NoError(t, err)
	assert.Same(t, custom, client.httpClient)
}

func TestClientFactory_RateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[]}`)
	}))
	defer srv.Close()

	factory, err := NewClientFactory(Config{
		BaseURL:           srv.URL,
		RequestsPerSecond: 20,
		Burst:             1,
	}, testLogger())
	require.NoError(t, err)

	a, err := factory.ForOrg("a")
	require.NoError(t, err)
	b, err := factory.ForOrg("b")
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err = a.FetchInventory(context.Background())
		require.NoError(t, err)
		_, err = b.FetchInventory(context.Background())
		require.NoError(t, err)
	}
	// Six requests at 20/s with a burst of one need at least 250ms.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}
