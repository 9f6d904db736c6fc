package storetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/authsession/pkg/credentials"
)

// StoreFactory creates a fresh Store for each test. It should register any
// teardown with t.Cleanup.
type StoreFactory func(t *testing.T) credentials.Store

// RunConformanceSuite runs the full conformance suite against factory.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("EmptyStoreReadsAsEmpty", func(t *testing.T) {
		s := factory(t)
		got, err := s.Read(t.Context())
		require.NoError(t, err)
		assert.True(t, got.Empty())
		assert.False(t, got.Complete())
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		s := factory(t)
		want := Sample("a1", "r1")
		require.NoError(t, s.Write(t.Context(), want))

		got, err := s.Read(t.Context())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("WriteReplacesAllSlots", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Write(t.Context(), Sample("a1", "r1")))

		next := Sample("a2", "r2")
		next.User.Email = "bob@example.com"
		require.NoError(t, s.Write(t.Context(), next))

		got, err := s.Read(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "a2", got.AccessToken)
		assert.Equal(t, "r2", got.RefreshToken)
		assert.Equal(t, "bob@example.com", got.User.Email)
	})

	t.Run("IncompleteWriteIsRejected", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Write(t.Context(), Sample("a1", "r1")))

		cases := map[string]*credentials.Credentials{
			"nil":         nil,
			"no access":   {RefreshToken: "r2", User: Sample("", "").User},
			"no refresh":  {AccessToken: "a2", User: Sample("", "").User},
			"no user":     {AccessToken: "a2", RefreshToken: "r2"},
			"all missing": {},
		}
		for name, c := range cases {
			err := s.Write(t.Context(), c)
			assert.ErrorIs(t, err, credentials.ErrIncomplete, name)
		}

		got, err := s.Read(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "a1", got.AccessToken, "rejected write must not touch stored slots")
	})

	t.Run("ClearRemovesEverything", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Write(t.Context(), Sample("a1", "r1")))
		require.NoError(t, s.Clear(t.Context()))

		got, err := s.Read(t.Context())
		require.NoError(t, err)
		assert.True(t, got.Empty())
	})

	t.Run("ClearIsIdempotent", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Clear(t.Context()))
		require.NoError(t, s.Clear(t.Context()))
	})

	t.Run("ReturnedSnapshotIsDetached", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Write(t.Context(), Sample("a1", "r1")))

		got, err := s.Read(t.Context())
		require.NoError(t, err)
		got.User.Email = "mutated@example.com"

		again, err := s.Read(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", again.User.Email)
	})

	t.Run("ConcurrentWritesNeverInterleave", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Write(t.Context(), Sample("a0", "r0")))

		var wg sync.WaitGroup
		for i := 1; i <= 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.Write(t.Context(), Sample(fmt.Sprintf("a%d", i), fmt.Sprintf("r%d", i)))
			}(i)
		}
		wg.Wait()

		got, err := s.Read(t.Context())
		require.NoError(t, err)
		require.True(t, got.Complete())
		assert.Equal(t, got.AccessToken[1:], got.RefreshToken[1:], "access and refresh token come from the same write")
	})
}

// Sample returns a complete snapshot for alice with the given tokens.
func Sample(access, refresh string) *credentials.Credentials {
	return &credentials.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		User: &credentials.User{
			ID:           "u-1",
			Email:        "alice@example.com",
			FirstName:    "Alice",
			LastName:     "Liddell",
			Role:         "customer",
			CustomerType: credentials.CustomerIndividual,
		},
	}
}
