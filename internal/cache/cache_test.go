package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_CallsOnceThenHits(t *testing.T) {
	m := New(time.Minute)
	calls := 0
	fn := func() (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		got, err := Do(m, "k", fn)
		require.NoError(t, err)
		assert.Equal(t, "value", got)
	}
	assert.Equal(t, 1, calls)
}

func TestDo_DoesNotStoreErrors(t *testing.T) {
	m := New(time.Minute)
	calls := 0
	fn := func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("boom")
		}
		return 42, nil
	}

	_, err := Do(m, "k", fn)
	require.Error(t, err)
	assert.Zero(t, m.Len())

	got, err := Do(m, "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestDo_DistinctKeys(t *testing.T) {
	m := New(time.Minute)

	a, _ := Do(m, "a", func() (string, error) { return "A", nil })
	b, _ := Do(m, "b", func() (string, error) { return "B", nil })

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Equal(t, 2, m.Len())
}

func TestDo_Expires(t *testing.T) {
	m := New(20 * time.Millisecond)
	calls := 0
	fn := func() (int, error) {
		calls++
		return calls, nil
	}

	first, _ := Do(m, "k", fn)
	time.Sleep(40 * time.Millisecond)
	second, _ := Do(m, "k", fn)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestDeletePrefix(t *testing.T) {
	m := New(time.Minute)
	m.Set("resumes:list:1:0:10", 1)
	m.Set("resumes:list:1:10:10", 2)
	m.Set("resumes:list:2:0:10", 3)
	m.Set("resumes:get:5", 4)

	m.DeletePrefix("resumes:list:1:")

	_, ok := m.Get("resumes:list:1:0:10")
	assert.False(t, ok)
	_, ok = m.Get("resumes:list:1:10:10")
	assert.False(t, ok)
	_, ok = m.Get("resumes:list:2:0:10")
	assert.True(t, ok)
	_, ok = m.Get("resumes:get:5")
	assert.True(t, ok)
}

func TestDeleteAndFlush(t *testing.T) {
	m := New(0)
	m.Set("a", 1)
	m.Set("b", 2)

	m.Delete("a")
	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	m.Flush()
	assert.Zero(t, m.Len())
}

func TestDo_InvalidationDuringComputeIsNotOverwritten(t *testing.T) {
	tests := []struct {
		name       string
		invalidate func(m *Memo)
	}{
		{"delete", func(m *Memo) { m.Delete("resumes:get:1") }},
		{"delete prefix", func(m *Memo) { m.DeletePrefix("resumes:") }},
		{"flush", func(m *Memo) { m.Flush() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(time.Minute)
			reading := make(chan struct{})
			release := make(chan struct{})
			done := make(chan string)

			go func() {
				v, _ := Do(m, "resumes:get:1", func() (string, error) {
					close(reading)
					<-release
					return "stale", nil
				})
				done <- v
			}()

			<-reading
			tt.invalidate(m)
			close(release)

			// The in-flight caller still gets what it read.
			assert.Equal(t, "stale", <-done)

			_, ok := m.Get("resumes:get:1")
			assert.False(t, ok, "a value computed before the invalidation must not be stored")

			got, err := Do(m, "resumes:get:1", func() (string, error) { return "fresh", nil })
			require.NoError(t, err)
			assert.Equal(t, "fresh", got)
		})
	}
}

func TestDo_StoresWhenNothingInvalidated(t *testing.T) {
	m := New(time.Minute)
	m.Set("other", 1)

	_, err := Do(m, "k", func() (int, error) { return 7, nil })
	require.NoError(t, err)

	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}
