package memorylimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(map[string]Limit{"confirm": {Limit: 2, Window: time.Minute}}).WithClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		ok, err := l.AllowNamed("confirm", "ip:1")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, _ := l.AllowNamed("confirm", "ip:1")
	require.False(t, ok)

	// Other keys have their own window.
	ok, _ = l.AllowNamed("confirm", "ip:2")
	require.True(t, ok)

	// Half a window refills one of the two tokens.
	now = now.Add(30 * time.Second)
	ok, _ = l.AllowNamed("confirm", "ip:1")
	require.True(t, ok)
	ok, _ = l.AllowNamed("confirm", "ip:1")
	require.False(t, ok)

	now = now.Add(time.Minute)
	for i := 0; i < 2; i++ {
		ok, _ = l.AllowNamed("confirm", "ip:1")
		require.True(t, ok)
	}
}

func TestLimiter_BucketsAreIndependent(t *testing.T) {
	l := New(map[string]Limit{
		"confirm":  {Limit: 1, Window: time.Hour},
		"password": {Limit: 1, Window: time.Hour},
	})
	ok, _ := l.AllowNamed("confirm", "ip:1")
	require.True(t, ok)
	ok, _ = l.AllowNamed("password", "ip:1")
	require.True(t, ok)
	ok, _ = l.AllowNamed("confirm", "ip:1")
	require.False(t, ok)
}

func TestLimiter_DefaultBucket(t *testing.T) {
	l := New(map[string]Limit{"default": {Limit: 1, Window: time.Hour}})
	ok, _ := l.AllowNamed("unknown", "k")
	require.True(t, ok)
	ok, _ = l.AllowNamed("unknown", "k")
	require.False(t, ok)

	open := New(nil)
	for i := 0; i < 5; i++ {
		ok, err := open.AllowNamed("anything", "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
}
