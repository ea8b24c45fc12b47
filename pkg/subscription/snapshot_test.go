package subscription

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func mustSnapshot(t *testing.T, subs ...Subscription) Snapshot {
	t.Helper()
	s, err := NewSnapshot(subs...)
	require.NoError(t, err)
	return s
}

func TestNewSnapshot(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		s := mustSnapshot(t, Subscription{"a", ModeDigest}, Subscription{"b", ModeInstant})
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, Subscription{"b", ModeInstant}, s.At(1))
	})

	t.Run("DuplicateTopic", func(t *testing.T) {
		_, err := NewSnapshot(Subscription{"a", ModeDigest}, Subscription{"a", ModeInstant})
		assert.ErrorIs(t, err, ErrDuplicateTopic)
	})

	t.Run("EmptyTopic", func(t *testing.T) {
		_, err := NewSnapshot(Subscription{" ", ModeDigest})
		assert.ErrorIs(t, err, ErrInvalidTopic)
	})

	t.Run("CopiesInput", func(t *testing.T) {
		in := []Subscription{{"a", ModeDigest}}
		s := mustSnapshot(t, in...)
		in[0].Mode = ModeInstant
		assert.Equal(t, ModeDigest, s.At(0).Mode)
	})
}

func TestSnapshotApply(t *testing.T) {
	base := mustSnapshot(t,
		Subscription{"a", ModeDigest},
		Subscription{"b", ModeInstant},
		Subscription{"c", ModeInstant},
	)

	tests := []struct {
		name    string
		req     MutationRequest
		want    []Subscription
		changed bool
	}{
		{
			name:    "ClearAbsentIsNoop",
			req:     Clear("z"),
			want:    base.Subscriptions(),
			changed: false,
		},
		{
			name: "SetAbsentAppends",
			req:  Set("z", ModeDigest),
			want: []Subscription{
				{"a", ModeDigest}, {"b", ModeInstant}, {"c", ModeInstant}, {"z", ModeDigest},
			},
			changed: true,
		},
		{
			name:    "ClearPresentRemoves",
			req:     Clear("b"),
			want:    []Subscription{{"a", ModeDigest}, {"c", ModeInstant}},
			changed: true,
		},
		{
			name:    "SetPresentReplacesInPlace",
			req:     Set("b", ModeDigest),
			want:    []Subscription{{"a", ModeDigest}, {"b", ModeDigest}, {"c", ModeInstant}},
			changed: true,
		},
		{
			name:    "SetSameModeStillWrites",
			req:     Set("a", ModeDigest),
			want:    base.Subscriptions(),
			changed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := base.Apply(tt.req)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, got.Subscriptions())
			// Receiver is never modified.
			assert.Equal(t, 3, base.Len())
			assert.Equal(t, ModeInstant, base.At(1).Mode)
		})
	}
}

func TestSnapshotAccessors(t *testing.T) {
	s := mustSnapshot(t, Subscription{"a", ModeDigest}, Subscription{"b", ModeInstant})

	sub, ok := s.Find("b")
	assert.True(t, ok)
	assert.Equal(t, ModeInstant, sub.Mode)
	_, ok = s.Find("zz")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, s.Topics())
	assert.Equal(t, "[a:digest b:instant]", s.String())

	assert.True(t, s.Equal(mustSnapshot(t, Subscription{"a", ModeDigest}, Subscription{"b", ModeInstant})))
	assert.False(t, s.Equal(mustSnapshot(t, Subscription{"b", ModeInstant}, Subscription{"a", ModeDigest})))

	subs := s.Subscriptions()
	subs[0].Mode = ModeInstant
	assert.Equal(t, ModeDigest, s.At(0).Mode)
}

func TestSnapshotEmptyTopicsEncodeAsArray(t *testing.T) {
	data, err := json.Marshal(writeBody{Subscriptions: Snapshot{}.Topics()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"subscriptions":[]}`, string(data))
}

func TestSnapshotFromTopics(t *testing.T) {
	s := snapshotFromTopics([]string{"a", "", "b", "a"})
	assert.Equal(t, []Subscription{{"a", ModeInstant}, {"b", ModeInstant}}, s.Subscriptions())

	assert.Equal(t, 0, snapshotFromTopics(nil).Len())
}

func TestMode(t *testing.T) {
	t.Run("Parse", func(t *testing.T) {
		m, err := ParseMode(" Digest ")
		require.NoError(t, err)
		assert.Equal(t, ModeDigest, m)

		m, err = ParseMode("INSTANT")
		require.NoError(t, err)
		assert.Equal(t, ModeInstant, m)

		_, err = ParseMode("hourly")
		assert.ErrorIs(t, err, ErrInvalidMode)
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "digest", ModeDigest.String())
		assert.Equal(t, "instant", ModeInstant.String())
		assert.Equal(t, "Mode(9)", Mode(9).String())
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := json.Marshal(Subscription{Topic: "a", Mode: ModeDigest})
		require.NoError(t, err)
		assert.JSONEq(t, `{"topic":"a","mode":"digest"}`, string(data))

		var sub Subscription
		require.NoError(t, json.Unmarshal([]byte(`{"topic":"b","mode":"instant"}`), &sub))
		assert.Equal(t, Subscription{"b", ModeInstant}, sub)

		assert.Error(t, json.Unmarshal([]byte(`{"topic":"b","mode":"weekly"}`), &sub))
		_, err = json.Marshal(Mode(7))
		assert.Error(t, err)
	})

	t.Run("YAML", func(t *testing.T) {
		var subs []Subscription
		require.NoError(t, yaml.Unmarshal([]byte("- topic: a\n  mode: digest\n"), &subs))
		assert.Equal(t, []Subscription{{"a", ModeDigest}}, subs)
	})
}

func TestMutationRequest(t *testing.T) {
	assert.ErrorIs(t, Clear("").Validate(), ErrInvalidTopic)
	assert.NoError(t, Set("a", ModeDigest).Validate())

	assert.True(t, Clear("a").IsClear())
	assert.False(t, Set("a", ModeInstant).IsClear())

	assert.Equal(t, "clear a", Clear("a").String())
	assert.Equal(t, "set a=digest", Set("a", ModeDigest).String())
}
