// Package causal связывает ядро с внешним причинным движком: отправляет ему
// события голосов и сохраняет полученные Score и Effect.
package causal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"discuss_go/models"
)

// ErrMalformedOutput — строка ответа движка не разбирается или имеет неизвестный вид.
// Вся пачка при этом отбрасывается.
var ErrMalformedOutput = errors.New("malformed causal engine output")

// maxLineSize — предел длины одной строки NDJSON.
const maxLineSize = 1 << 20

// Event — событие голоса в формате движка. Время передаётся в миллисекундах Unix.
type Event struct {
	VoteEventID   int64  `json:"vote_event_id"`
	VoteEventTime int64  `json:"vote_event_time"`
	UserID        string `json:"user_id"`
	PostID        int64  `json:"post_id"`
	ParentID      *int64 `json:"parent_id"`
	CommentID     *int64 `json:"comment_id"`
	Vote          int    `json:"vote"`
}

// NewEvent переводит событие голоса в формат движка. CommentID — критический
// комментарий, который голосующий видел, или null.
func NewEvent(v models.VoteEvent) Event {
	ev := Event{
		VoteEventID:   v.VoteEventID,
		VoteEventTime: v.VoteEventTime.UnixMilli(),
		UserID:        v.UserID,
		PostID:        v.PostID,
		ParentID:      v.ParentID,
		Vote:          int(v.Vote),
	}
	if v.IsInformed {
		ev.CommentID = v.CriticalCommentID
	}
	return ev
}

// Encode возвращает событие одной строкой JSON с переводом строки.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode vote event %d: %w", e.VoteEventID, err)
	}
	return append(b, '\n'), nil
}

type wireScore struct {
	PostID int64   `json:"post_id"`
	O      float64 `json:"o"`
	OCount int     `json:"o_count"`
	OSize  int     `json:"o_size"`
	P      float64 `json:"p"`
	Score  float64 `json:"score"`
}

type wireEffect struct {
	PostID    int64   `json:"post_id"`
	CommentID int64   `json:"comment_id"`
	P         float64 `json:"p"`
	PCount    int     `json:"p_count"`
	PSize     int     `json:"p_size"`
	Q         float64 `json:"q"`
	QCount    int     `json:"q_count"`
	QSize     int     `json:"q_size"`
	R         float64 `json:"r"`
	Weight    float64 `json:"weight"`
}

type wireLine struct {
	VoteEventID   *int64      `json:"vote_event_id"`
	VoteEventTime *int64      `json:"vote_event_time"`
	Score         *wireScore  `json:"score"`
	Effect        *wireEffect `json:"effect"`
}

// Output — разобранный ответ движка на одно или несколько событий.
type Output struct {
	Scores  []models.Score
	Effects []models.Effect
}

// ParseOutput разбирает NDJSON. Пустые строки пропускаются. Любая другая строка
// обязана содержать vote_event_id, vote_event_time и ровно одно из score/effect,
// иначе возвращается ErrMalformedOutput с номером и текстом строки.
func ParseOutput(data []byte) (*Output, error) {
	out := &Output{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := out.add(line); err != nil {
			return nil, fmt.Errorf("%w: line %d %q: %v", ErrMalformedOutput, lineNo, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOutput, lineNo+1, err)
	}
	return out, nil
}

func (o *Output) add(line []byte) error {
	var w wireLine
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON object")
	}
	if w.VoteEventID == nil || w.VoteEventTime == nil {
		return errors.New("missing vote_event_id or vote_event_time")
	}
	eventTime := time.UnixMilli(*w.VoteEventTime).UTC()

	switch {
	case w.Score != nil && w.Effect == nil:
		o.Scores = append(o.Scores, models.Score{
			VoteEventID:   *w.VoteEventID,
			VoteEventTime: eventTime,
			PostID:        w.Score.PostID,
			O:             w.Score.O,
			OCount:        w.Score.OCount,
			OSize:         w.Score.OSize,
			P:             w.Score.P,
			Score:         w.Score.Score,
		})
	case w.Effect != nil && w.Score == nil:
		o.Effects = append(o.Effects, models.Effect{
			VoteEventID:   *w.VoteEventID,
			VoteEventTime: eventTime,
			PostID:        w.Effect.PostID,
			CommentID:     w.Effect.CommentID,
			P:             w.Effect.P,
			PCount:        w.Effect.PCount,
			PSize:         w.Effect.PSize,
			Q:             w.Effect.Q,
			QCount:        w.Effect.QCount,
			QSize:         w.Effect.QSize,
			R:             w.Effect.R,
			Weight:        w.Effect.Weight,
		})
	default:
		return errors.New("expected exactly one of score or effect")
	}
	return nil
}

// HasScoreFor сообщает, есть ли в ответе Score исходного поста события.
func (o *Output) HasScoreFor(v models.VoteEvent) bool {
	for _, s := range o.Scores {
		if s.VoteEventID == v.VoteEventID && s.PostID == v.PostID {
			return true
		}
	}
	return false
}
