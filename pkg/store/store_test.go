package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedis(RedisOptions{Addr: mr.Addr(), Prefix: "ts:", TTL: ttl})
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestBackends_PutGet(t *testing.T) {
	redisStore, _ := newTestRedis(t, 0)
	backends := map[string]Store{
		"memory": NewMemory(),
		"redis":  redisStore,
	}

	for name, s := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put(ctx, "k", []byte("v1")))
			require.NoError(t, s.Put(ctx, "k", []byte("v2")))

			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", string(v))
		})
	}
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Put(context.Background(), "k", buf))
	buf[0] = 'X'

	v, _, _ := m.Get(context.Background(), "k")
	assert.Equal(t, "abc", string(v))
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	r, mr := newTestRedis(t, time.Minute)
	require.NoError(t, r.Put(context.Background(), "summary:1", []byte("x")))

	assert.True(t, mr.Exists("ts:summary:1"))
	assert.Equal(t, time.Minute, mr.TTL("ts:summary:1"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := r.Get(context.Background(), "summary:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_PingAndErrors(t *testing.T) {
	r, mr := newTestRedis(t, 0)
	assert.NoError(t, r.Ping(context.Background()))

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
	_, _, err := r.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestRecords_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rec := NewRecords(NewMemory())
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	tr, err := rec.SaveTranscript(ctx, Transcript{Filename: "standup.txt", Text: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, fixed, tr.UploadedAt)

	got, err := rec.Transcript(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr, got)

	sum, err := rec.SaveSummary(ctx, Summary{TranscriptID: tr.ID, Content: "X", Provider: "Groq"})
	require.NoError(t, err)
	assert.Equal(t, fixed, sum.CreatedAt)

	later := fixed.Add(time.Hour)
	rec.now = func() time.Time { return later }
	sum.Content = "edited"
	sum.Edited = true
	sum, err = rec.SaveSummary(ctx, sum)
	require.NoError(t, err)
	assert.Equal(t, fixed, sum.CreatedAt)
	assert.Equal(t, later, sum.UpdatedAt)

	gotSum, err := rec.Summary(ctx, sum.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", gotSum.Content)
	assert.True(t, gotSum.Edited)

	sh, err := rec.SaveShare(ctx, Share{SummaryID: sum.ID, Recipients: []string{"a@example.com"}, Subject: "s"})
	require.NoError(t, err)
	gotShare, err := rec.Share(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, sh, gotShare)
}

func TestRecords_NotFound(t *testing.T) {
	rec := NewRecords(NewMemory())
	_, err := rec.Summary(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = rec.Transcript(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecords_OverRedis(t *testing.T) {
	r, _ := newTestRedis(t, 0)
	rec := NewRecords(r)

	tr, err := rec.SaveTranscript(context.Background(), Transcript{Filename: "a.md", Text: "# notes"})
	require.NoError(t, err)

	got, err := rec.Transcript(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "# notes", got.Text)
	assert.True(t, tr.UploadedAt.Equal(got.UploadedAt))
}
