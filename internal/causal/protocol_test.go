package causal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"discuss_go/models"
)

func TestParseOutput(t *testing.T) {
	raw := []byte(`{"vote_event_id":7,"vote_event_time":1700000000000,"score":{"post_id":1,"o":0.6,"o_count":3,"o_size":5,"p":0.55,"score":0.1}}

{"vote_event_id":7,"vote_event_time":1700000000000,"effect":{"post_id":1,"comment_id":2,"p":0.7,"p_count":2,"p_size":3,"q":0.5,"q_count":1,"q_size":2,"r":0.2,"weight":0.25}}
`)
	out, err := ParseOutput(raw)
	require.NoError(t, err)
	require.Len(t, out.Scores, 1)
	require.Len(t, out.Effects, 1)

	s := out.Scores[0]
	require.Equal(t, int64(7), s.VoteEventID)
	require.Equal(t, int64(1), s.PostID)
	require.Equal(t, 5, s.OSize)
	require.True(t, s.VoteEventTime.Equal(time.UnixMilli(1700000000000)))

	e := out.Effects[0]
	require.Equal(t, int64(2), e.CommentID)
	require.Equal(t, 0.25, e.Weight)
	require.Equal(t, 3, e.PSize)

	require.True(t, out.HasScoreFor(models.VoteEvent{VoteEventID: 7, PostID: 1}))
	require.False(t, out.HasScoreFor(models.VoteEvent{VoteEventID: 7, PostID: 2}))
}

// Любая строка неизвестного вида отбрасывает всю пачку.
func TestParseOutputMalformed(t *testing.T) {
	good := `{"vote_event_id":1,"vote_event_time":1,"score":{"post_id":1}}`
	cases := map[string]string{
		"не JSON":             "score=1",
		"неизвестное поле":    `{"vote_event_id":1,"vote_event_time":1,"tag":{}}`,
		"оба вида":            `{"vote_event_id":1,"vote_event_time":1,"score":{"post_id":1},"effect":{"post_id":1,"comment_id":2}}`,
		"ни одного вида":      `{"vote_event_id":1,"vote_event_time":1}`,
		"без id события":      `{"vote_event_time":1,"score":{"post_id":1}}`,
		"мусор после объекта": good + ` garbage`,
		"два объекта":         good + ` ` + good,
	}
	for name, line := range cases {
		_, err := ParseOutput([]byte(good + "\n" + line + "\n"))
		if !errors.Is(err, ErrMalformedOutput) {
			t.Fatalf("%s: ожидалась ErrMalformedOutput, получено %v", name, err)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Fatalf("%s: в ошибке нет номера строки: %v", name, err)
		}
	}
}

func TestParseOutputEmpty(t *testing.T) {
	out, err := ParseOutput(nil)
	require.NoError(t, err)
	require.Empty(t, out.Scores)
	require.Empty(t, out.Effects)
}

func TestEventEncode(t *testing.T) {
	parent, critical := int64(3), int64(9)
	v := models.VoteEvent{
		VoteEventID: 42, UserID: "u1", PostID: 5, ParentID: &parent, Vote: models.Down,
		VoteEventTime: time.UnixMilli(1700000000123), CriticalCommentID: &critical,
	}

	b, err := NewEvent(v).Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"vote_event_id":42,"vote_event_time":1700000000123,"user_id":"u1","post_id":5,"parent_id":3,"comment_id":null,"vote":-1}`, string(b))
	require.True(t, strings.HasSuffix(string(b), "\n"))

	v.IsInformed = true
	require.Equal(t, &critical, NewEvent(v).CommentID)
}
